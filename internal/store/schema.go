package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const schema = `
CREATE TABLE IF NOT EXISTS askee (
	id           SERIAL PRIMARY KEY,
	display_name TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
);

CREATE TABLE IF NOT EXISTS ask (
	id         SERIAL PRIMARY KEY,
	askee      INTEGER NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc'),
	dedup      TEXT NOT NULL,
	CONSTRAINT ask_askee_fkey FOREIGN KEY (askee) REFERENCES askee (id),
	CONSTRAINT ask_dedup_key UNIQUE (dedup)
);

CREATE INDEX IF NOT EXISTS ask_askee_created_at_idx ON ask (askee, created_at);
`

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// CreateSchema creates the tables if they are missing. Safe to run repeatedly.
func CreateSchema(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
