package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"askbox/internal/model"
)

var (
	pgxPoolNewWithConfig   = pgxpool.NewWithConfig
	postgresConnectRetries = 10
	postgresRetryDelay     = 2 * time.Second
	postgresPingTimeout    = 2 * time.Second
	postgresSleep          = time.Sleep
)

// DB is the subset of *pgxpool.Pool the Postgres store needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPostgresPool connects to dsn, retrying until the server answers a ping.
func NewPostgresPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	var lastErr error
	for i := 0; i < postgresConnectRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pool, err := pgxPoolNewWithConfig(ctx, cfg)
		if err != nil {
			lastErr = err
			postgresSleep(postgresRetryDelay)
			continue
		}
		ctxPing, cancel := context.WithTimeout(ctx, postgresPingTimeout)
		err = pool.Ping(ctxPing)
		cancel()
		if err == nil {
			return pool, nil
		}
		lastErr = err
		pool.Close()
		postgresSleep(postgresRetryDelay)
	}
	return nil, fmt.Errorf("db ping retries exhausted: %w", lastErr)
}

type Postgres struct {
	db    DB
	close func()
}

// NewPostgres wraps db. When db is a *pgxpool.Pool, Close closes it.
func NewPostgres(db DB) *Postgres {
	p := &Postgres{db: db, close: func() {}}
	if pool, ok := db.(*pgxpool.Pool); ok {
		p.close = pool.Close
	}
	return p
}

func (p *Postgres) Close() { p.close() }

const (
	sqlInsertAskee = `INSERT INTO askee (display_name) VALUES ($1) RETURNING id`
	sqlSelectAskee = `SELECT id, display_name, created_at FROM askee WHERE id = $1`
	sqlListAskees  = `SELECT id, display_name, created_at FROM askee ORDER BY id`

	sqlInsertAsk     = `INSERT INTO ask (askee, content, dedup) VALUES ($1, $2, $3) RETURNING id`
	sqlSelectAsk     = `SELECT id, askee, content, created_at, dedup FROM ask WHERE id = $1`
	sqlListAsksRange = `SELECT id, askee, content, created_at, dedup FROM ask
WHERE askee = $1 AND created_at < $2 AND created_at > $3
ORDER BY created_at, id`
)

func (p *Postgres) CreateAskee(ctx context.Context, askee model.Askee) (int64, error) {
	var id int64
	if err := p.db.QueryRow(ctx, sqlInsertAskee, askee.DisplayName).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert askee: %w", err)
	}
	return id, nil
}

func (p *Postgres) LoadAskee(ctx context.Context, id int64) (model.Askee, error) {
	askee, err := scanAskee(p.db.QueryRow(ctx, sqlSelectAskee, id))
	if err != nil {
		return model.Askee{}, fmt.Errorf("load askee %d: %w", id, err)
	}
	return askee, nil
}

func (p *Postgres) ListAskees(ctx context.Context) ([]model.Askee, error) {
	rows, err := p.db.Query(ctx, sqlListAskees)
	if err != nil {
		return nil, fmt.Errorf("list askees: %w", err)
	}
	defer rows.Close()

	result := make([]model.Askee, 0)
	for rows.Next() {
		askee, err := scanAskee(rows)
		if err != nil {
			return nil, fmt.Errorf("list askees: %w", err)
		}
		result = append(result, askee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list askees: %w", err)
	}
	return result, nil
}

func (p *Postgres) CreateAsk(ctx context.Context, ask model.Ask) (int64, error) {
	var id int64
	if err := p.db.QueryRow(ctx, sqlInsertAsk, ask.Askee, ask.Content, ask.Dedup).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert ask: %w", err)
	}
	return id, nil
}

func (p *Postgres) LoadAsk(ctx context.Context, id int64) (model.Ask, error) {
	ask, err := scanAsk(p.db.QueryRow(ctx, sqlSelectAsk, id))
	if err != nil {
		return model.Ask{}, fmt.Errorf("load ask %d: %w", id, err)
	}
	return ask, nil
}

func (p *Postgres) ListAsksInRange(ctx context.Context, askee int64, before, after time.Time) ([]model.Ask, error) {
	rows, err := p.db.Query(ctx, sqlListAsksRange, askee, before.UTC(), after.UTC())
	if err != nil {
		return nil, fmt.Errorf("list asks of askee %d: %w", askee, err)
	}
	defer rows.Close()

	result := make([]model.Ask, 0)
	for rows.Next() {
		ask, err := scanAsk(rows)
		if err != nil {
			return nil, fmt.Errorf("list asks of askee %d: %w", askee, err)
		}
		result = append(result, ask)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list asks of askee %d: %w", askee, err)
	}
	return result, nil
}

func scanAskee(row pgx.Row) (model.Askee, error) {
	var (
		a       model.Askee
		created time.Time
	)
	if err := row.Scan(&a.ID, &a.DisplayName, &created); err != nil {
		return model.Askee{}, err
	}
	a.CreatedAt = model.NewTimestamp(created)
	return a, nil
}

func scanAsk(row pgx.Row) (model.Ask, error) {
	var (
		a       model.Ask
		created time.Time
	)
	if err := row.Scan(&a.ID, &a.Askee, &a.Content, &created, &a.Dedup); err != nil {
		return model.Ask{}, err
	}
	a.CreatedAt = model.NewTimestamp(created)
	return a, nil
}
