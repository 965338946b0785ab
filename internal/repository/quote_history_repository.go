package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/watson9049/billygold-website/internal/domain"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// QuoteHistoryRepository appends every quote the engine stores and serves
// the history endpoint. The engine never reads from it.
type QuoteHistoryRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewQuoteHistoryRepository(pool PgxPool, tracer trace.Tracer) *QuoteHistoryRepository {
	return &QuoteHistoryRepository{pool: pool, tracer: tracer}
}

func (r *QuoteHistoryRepository) Record(ctx context.Context, q domain.Quote) error {
	ctx, span := r.tracer.Start(ctx, "quote-history-repo.record")
	defer span.End()
	span.SetAttributes(attribute.String("quote.kind", string(q.Kind)))

	_, err := r.pool.Exec(ctx,
		`INSERT INTO quote_history (kind, value, source, fetched_at) VALUES ($1, $2, $3, $4)`,
		string(q.Kind), q.Value, string(q.Source), q.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert quote history: %w", err)
	}
	return nil
}

// List returns the newest entries first. An empty kind lists every kind.
func (r *QuoteHistoryRepository) List(ctx context.Context, kind domain.QuoteKind, limit int) ([]domain.QuoteHistoryEntry, error) {
	ctx, span := r.tracer.Start(ctx, "quote-history-repo.list")
	defer span.End()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var (
		rows pgx.Rows
		err  error
	)
	if kind == "" {
		rows, err = r.pool.Query(ctx,
			`SELECT id, kind, value, source, fetched_at
			 FROM quote_history
			 ORDER BY fetched_at DESC
			 LIMIT $1`,
			limit,
		)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT id, kind, value, source, fetched_at
			 FROM quote_history
			 WHERE kind = $1
			 ORDER BY fetched_at DESC
			 LIMIT $2`,
			string(kind), limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query quote history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.QuoteHistoryEntry, 0)
	for rows.Next() {
		var e domain.QuoteHistoryEntry
		var k, src string
		if err := rows.Scan(&e.ID, &k, &e.Value, &src, &e.FetchedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.QuoteKind(k)
		e.Source = domain.QuoteSource(src)
		e.FetchedAt = e.FetchedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
