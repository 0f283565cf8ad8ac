package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Collection names known to the tracker.
const (
	CollectionTasks    = "tasks"
	CollectionExpenses = "expenses"
	CollectionPlans    = "plans"
)

type (
	// Fields is the field set of a record, without its id.
	Fields map[string]any

	// Record is a generic persisted item as returned by a record store.
	Record struct {
		ID     string
		Fields Fields
	}

	Task struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	Expense struct {
		ID          string          `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Month       string          `json:"month,omitempty"` // canonical month name, empty on legacy records
	}

	// Plan is a savings goal.
	Plan struct {
		ID   string `json:"id"`
		Goal string `json:"goal"`
	}

	// MonthBucket is the derived count and total of expenses for one calendar month.
	MonthBucket struct {
		Month          string          `json:"month"`
		ExpensesCount  int             `json:"expensesCount"`
		ExpensesAmount decimal.Decimal `json:"expensesAmount"`
	}

	// Identifiable is implemented by every record shape that carries a store id.
	Identifiable interface {
		RecordID() string
	}
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownField      = errors.New("unknown field")
	ErrMissingField      = errors.New("missing field")
	ErrNoFields          = errors.New("no fields to update")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrEmptyTitle        = errors.New("empty title")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyGoal         = errors.New("empty goal")
	ErrTooLong           = errors.New("value too long (max 200 characters)")
)

// Collections lists the collection names in display order.
func Collections() []string {
	return []string{CollectionTasks, CollectionExpenses, CollectionPlans}
}

// IsCollection reports whether name is a known collection.
func IsCollection(name string) bool {
	_, ok := schemas[name]
	return ok
}

// Months returns the twelve canonical month names, January through December.
func Months() []string {
	out := make([]string, 12)
	for i := range out {
		out[i] = time.Month(i + 1).String()
	}
	return out
}

// CanonicalMonth maps a month name in any letter case to its canonical form.
func CanonicalMonth(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, m := range Months() {
		if strings.EqualFold(m, name) {
			return m, true
		}
	}
	return "", false
}

func (r Record) RecordID() string  { return r.ID }
func (t Task) RecordID() string    { return t.ID }
func (e Expense) RecordID() string { return e.ID }
func (p Plan) RecordID() string    { return p.ID }

// Clone returns a shallow copy of the field set.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
