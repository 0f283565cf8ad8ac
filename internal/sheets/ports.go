package sheets

import (
	"context"

	"dolor/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter exports the monthly expense summary somewhere a human
	// can read it, returning a reference to what was written.
	SummaryWriter interface {
		WriteMonthlySummary(ctx context.Context, buckets []core.MonthBucket) (ref string, err error)
	}

	// SummaryReader reads back the last exported summary.
	SummaryReader interface {
		ReadMonthlySummary(ctx context.Context) ([]core.MonthBucket, error)
	}
)
