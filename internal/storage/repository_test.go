package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"dolor/internal/core"
	"dolor/internal/records"
)

func newSQLite(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "dolor.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func repositories(t *testing.T) map[string]*Repository {
	repos := map[string]*Repository{"sqlite": newSQLite(t)}
	if url := os.Getenv("POSTGRES_URL"); url != "" {
		pg, err := NewPostgresRepository(url)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		t.Cleanup(func() { pg.Close() })
		repos["postgres"] = pg
	}
	return repos
}

// collectionName isolates test runs that share a live database.
func collectionName() string {
	return "test_" + uuid.NewString()
}

func TestRepositoryCreateList(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := collectionName()

			empty, err := repo.ListAll(ctx, coll)
			if err != nil || empty == nil || len(empty) != 0 {
				t.Fatalf("empty list = %v, err = %v", empty, err)
			}

			a, err := repo.Create(ctx, coll, core.Fields{"title": "same"})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			b, err := repo.Create(ctx, coll, core.Fields{"title": "same"})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if a.ID == b.ID {
				t.Fatalf("identical fields must still get distinct ids")
			}

			list, err := repo.ListAll(ctx, coll)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
				t.Fatalf("list = %+v", list)
			}
			if list[0].Fields["title"] != "same" {
				t.Fatalf("fields = %v", list[0].Fields)
			}
		})
	}
}

func TestRepositoryUpdateOne(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := collectionName()
			rec, err := repo.Create(ctx, coll, core.Fields{"description": "rent", "amount": "500", "month": "May"})
			if err != nil {
				t.Fatal(err)
			}

			if err := repo.UpdateOne(ctx, coll, rec.ID, core.Fields{"amount": "550"}); err != nil {
				t.Fatalf("update: %v", err)
			}
			list, _ := repo.ListAll(ctx, coll)
			got := list[0].Fields
			if got["amount"] != "550" || got["description"] != "rent" || got["month"] != "May" {
				t.Fatalf("update should only replace amount: %v", got)
			}

			err = repo.UpdateOne(ctx, coll, "missing", core.Fields{"amount": "1"})
			if !errors.Is(err, records.ErrNotFound) {
				t.Fatalf("missing id err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestRepositoryDeleteMany(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := collectionName()
			a, _ := repo.Create(ctx, coll, core.Fields{"goal": "a"})
			b, _ := repo.Create(ctx, coll, core.Fields{"goal": "b"})
			c, _ := repo.Create(ctx, coll, core.Fields{"goal": "c"})

			if err := repo.DeleteMany(ctx, coll, []string{a.ID, c.ID, "never-existed"}); err != nil {
				t.Fatalf("delete: %v", err)
			}
			list, _ := repo.ListAll(ctx, coll)
			if len(list) != 1 || list[0].ID != b.ID {
				t.Fatalf("after delete: %+v", list)
			}
		})
	}
}

func TestRepositoryClosedDatabaseIsUnavailable(t *testing.T) {
	repo := newSQLite(t)
	repo.Close()
	ctx := context.Background()

	if _, err := repo.ListAll(ctx, "tasks"); !errors.Is(err, records.ErrStoreUnavailable) {
		t.Fatalf("list err = %v", err)
	}
	if _, err := repo.Create(ctx, "tasks", core.Fields{"title": "x"}); !errors.Is(err, records.ErrStoreUnavailable) {
		t.Fatalf("create err = %v", err)
	}
	err := repo.DeleteMany(ctx, "tasks", []string{"1", "2"})
	ids, ok := records.FailedIDs(err)
	if !ok || len(ids) != 2 {
		t.Fatalf("delete err = %v", err)
	}
	if err := repo.Ping(ctx); !errors.Is(err, records.ErrStoreUnavailable) {
		t.Fatalf("ping err = %v", err)
	}
}

func TestRepositoryIsolatesCollections(t *testing.T) {
	repo := newSQLite(t)
	ctx := context.Background()
	rec, _ := repo.Create(ctx, core.CollectionTasks, core.Fields{"title": "t"})

	if err := repo.UpdateOne(ctx, core.CollectionPlans, rec.ID, core.Fields{"goal": "x"}); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("cross-collection update err = %v", err)
	}
	if err := repo.DeleteMany(ctx, core.CollectionPlans, []string{rec.ID}); err != nil {
		t.Fatalf("cross-collection delete: %v", err)
	}
	if list, _ := repo.ListAll(ctx, core.CollectionTasks); len(list) != 1 {
		t.Fatalf("task should survive a delete in another collection")
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("postgres rebind = %q", got)
	}
	lite := &Repository{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}
