package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/watson9049/billygold-website/pkg/logging"
)

// Pool is nil when no database is configured or reachable.
var Pool *pgxpool.Pool

var (
	newPool  = pgxpool.New
	pingPool = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

// InitPostgres connects the shared pool. Postgres only backs quote history
// and advisor conversations, so failures leave Pool nil.
func InitPostgres(ctx context.Context, dsn string) {
	log := logging.For("postgres")
	if dsn == "" {
		log.Info("no DATABASE_URL, quote history disabled")
		return
	}

	pool, err := newPool(ctx, dsn)
	if err != nil {
		log.WithError(err).Warn("invalid DATABASE_URL, quote history disabled")
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pingPool(pingCtx, pool); err != nil {
		log.WithError(err).Warn("postgres unreachable, quote history disabled")
		pool.Close()
		return
	}
	Pool = pool
	log.Info("connected to Postgres")
}

// Close releases the shared pool if one was opened.
func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}
