// Package memory keeps exported summaries in process. It stands in for the
// Google writer when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"dolor/internal/core"
	ports "dolor/internal/sheets"
)

var (
	_ ports.SummaryWriter = (*Writer)(nil)
	_ ports.SummaryReader = (*Writer)(nil)
)

type Writer struct {
	mu      sync.Mutex
	last    []core.MonthBucket
	written int
}

func New() *Writer {
	return &Writer{}
}

// WriteMonthlySummary stores a copy of buckets and returns a synthetic reference.
func (w *Writer) WriteMonthlySummary(_ context.Context, buckets []core.MonthBucket) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = append([]core.MonthBucket(nil), buckets...)
	w.written++
	return fmt.Sprintf("mem:%d", w.written), nil
}

// ReadMonthlySummary returns the last written summary, or nil if none.
func (w *Writer) ReadMonthlySummary(_ context.Context) ([]core.MonthBucket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.MonthBucket(nil), w.last...), nil
}

// Writes returns how many summaries have been written.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}
