package http

import (
	"context"

	"dolor/internal/core"
	"dolor/internal/services"
)

// collectionAPI is the untyped view the handlers use for every collection.
type collectionAPI interface {
	list(ctx context.Context) (any, error)
	create(ctx context.Context, fields core.Fields) (any, error)
	update(ctx context.Context, id string, fields core.Fields) error
	remove(ctx context.Context, ids []string) error
}

type listAPI[T core.Identifiable] struct {
	svc *services.ListService[T]
}

func (a listAPI[T]) list(ctx context.Context) (any, error) {
	return a.svc.List(ctx)
}

func (a listAPI[T]) create(ctx context.Context, fields core.Fields) (any, error) {
	return a.svc.Create(ctx, fields)
}

func (a listAPI[T]) update(ctx context.Context, id string, fields core.Fields) error {
	return a.svc.Update(ctx, id, fields)
}

func (a listAPI[T]) remove(ctx context.Context, ids []string) error {
	return a.svc.Delete(ctx, ids)
}

func collectionsOf(t *services.Tracker) map[string]collectionAPI {
	return map[string]collectionAPI{
		core.CollectionTasks:    listAPI[core.Task]{t.Tasks},
		core.CollectionExpenses: listAPI[core.Expense]{t.Expenses},
		core.CollectionPlans:    listAPI[core.Plan]{t.Plans},
	}
}
