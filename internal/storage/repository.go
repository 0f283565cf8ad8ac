// Package storage implements records.Store on a SQL database.
//
// Every record lives in a single "records" table keyed by (collection, id)
// with its fields serialized as a JSON document. SQLite (modernc.org/sqlite)
// and PostgreSQL (lib/pq) share the same queries; only placeholders and the
// row lock used by partial updates differ.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"dolor/internal/core"
	"dolor/internal/records"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// Repository is a SQL-backed records.Store.
type Repository struct {
	db                *sql.DB
	dialect           Dialect
	deleteConcurrency int
}

// Option configures a Repository.
type Option func(*Repository)

// WithDeleteConcurrency bounds the parallel per-id deletes of DeleteMany.
func WithDeleteConcurrency(n int) Option {
	return func(r *Repository) { r.deleteConcurrency = n }
}

// NewSQLiteRepository opens (creating if needed) the SQLite file at dbPath
// and applies migrations.
func NewSQLiteRepository(dbPath string, opts ...Option) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, dbPath, opts...)
}

// NewPostgresRepository connects to the PostgreSQL server at url and applies
// migrations.
func NewPostgresRepository(url string, opts ...Option) (*Repository, error) {
	return open(DialectPostgres, url, opts...)
}

func open(dialect Dialect, dsn string, opts ...Option) (*Repository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dialect == DialectSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent deletes.
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	r := &Repository{db: db, dialect: dialect, deleteConcurrency: records.DefaultDeleteConcurrency}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return records.Unavailable("ping", err)
	}
	return nil
}

// Create implements records.Store.
func (r *Repository) Create(ctx context.Context, collection string, fields core.Fields) (core.Record, error) {
	if fields == nil {
		fields = core.Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return core.Record{}, fmt.Errorf("encode fields: %w", err)
	}
	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO records (collection, id, data) VALUES (?, ?, ?)`),
		collection, id, string(data))
	if err != nil {
		return core.Record{}, records.Unavailable("create", err)
	}

	slog.InfoContext(ctx, "Record saved",
		"backend", string(r.dialect),
		"collection", collection,
		"id", id)

	return core.Record{ID: id, Fields: fields.Clone()}, nil
}

// ListAll implements records.Store.
func (r *Repository) ListAll(ctx context.Context, collection string) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		r.rebind(`SELECT id, data FROM records WHERE collection = ? ORDER BY seq`),
		collection)
	if err != nil {
		return nil, records.Unavailable("list", err)
	}
	defer rows.Close()

	out := []core.Record{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, records.Unavailable("list", err)
		}
		fields, err := decodeFields(data)
		if err != nil {
			slog.WarnContext(ctx, "Skipping undecodable record",
				"collection", collection, "id", id, "error", err)
			continue
		}
		out = append(out, core.Record{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, records.Unavailable("list", err)
	}
	return out, nil
}

// DeleteMany implements records.Store.
func (r *Repository) DeleteMany(ctx context.Context, collection string, ids []string) error {
	err := records.DeleteEach(ctx, collection, ids, r.deleteConcurrency, func(ctx context.Context, id string) error {
		if _, err := r.db.ExecContext(ctx,
			r.rebind(`DELETE FROM records WHERE collection = ? AND id = ?`),
			collection, id); err != nil {
			return records.Unavailable("delete", err)
		}
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Partial delete", "collection", collection, "error", err)
		return err
	}
	slog.InfoContext(ctx, "Records deleted", "collection", collection, "count", len(ids))
	return nil
}

// UpdateOne implements records.Store with a read-merge-write in one transaction.
func (r *Repository) UpdateOne(ctx context.Context, collection, id string, fields core.Fields) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return records.Unavailable("update", err)
	}
	defer tx.Rollback()

	query := `SELECT data FROM records WHERE collection = ? AND id = ?`
	if r.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}
	var data []byte
	if err := tx.QueryRowContext(ctx, r.rebind(query), collection, id).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update %s/%s: %w", collection, id, records.ErrNotFound)
		}
		return records.Unavailable("update", err)
	}

	current, err := decodeFields(data)
	if err != nil {
		current = core.Fields{}
	}
	for k, v := range fields {
		current[k] = v
	}
	merged, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		r.rebind(`UPDATE records SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND id = ?`),
		string(merged), collection, id); err != nil {
		return records.Unavailable("update", err)
	}
	if err := tx.Commit(); err != nil {
		return records.Unavailable("update", err)
	}

	slog.DebugContext(ctx, "Record updated", "collection", collection, "id", id)
	return nil
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func decodeFields(data []byte) (core.Fields, error) {
	var f core.Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f == nil {
		f = core.Fields{}
	}
	return f, nil
}
