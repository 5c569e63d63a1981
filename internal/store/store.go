package store

import (
	"context"
	"time"

	"askbox/internal/model"
)

// Store is the persistence surface the handlers use. Failures carry the
// Postgres error surface (*pgconn.PgError, pgx.ErrNoRows) whichever backend
// is behind it.
type Store interface {
	CreateAskee(ctx context.Context, askee model.Askee) (int64, error)
	LoadAskee(ctx context.Context, id int64) (model.Askee, error)
	ListAskees(ctx context.Context) ([]model.Askee, error)

	CreateAsk(ctx context.Context, ask model.Ask) (int64, error)
	LoadAsk(ctx context.Context, id int64) (model.Ask, error)
	// ListAsksInRange returns the askee's asks with after < created_at < before,
	// oldest first.
	ListAsksInRange(ctx context.Context, askee int64, before, after time.Time) ([]model.Ask, error)

	Close()
}

const (
	askDedupConstraint = "ask_dedup_key"
	askAskeeConstraint = "ask_askee_fkey"
)
