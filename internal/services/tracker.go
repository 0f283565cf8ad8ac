package services

import (
	"context"
	"fmt"

	"dolor/internal/core"
	"dolor/internal/records"
)

// Tracker groups the three list services over one store.
type Tracker struct {
	Tasks    *ListService[core.Task]
	Expenses *ListService[core.Expense]
	Plans    *ListService[core.Plan]
}

func NewTracker(store records.Store) *Tracker {
	return &Tracker{
		Tasks:    NewListService(records.NewCollection[core.Task](store, core.CollectionTasks)),
		Expenses: NewListService(records.NewCollection[core.Expense](store, core.CollectionExpenses)),
		Plans:    NewListService(records.NewCollection[core.Plan](store, core.CollectionPlans)),
	}
}

// MonthlySummary fetches every expense and buckets it by month.
func (t *Tracker) MonthlySummary(ctx context.Context) ([]core.MonthBucket, error) {
	expenses, err := t.Expenses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}
	return core.AggregateByMonth(expenses), nil
}
