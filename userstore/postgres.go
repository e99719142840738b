package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inkstone/wbauth"
	"github.com/inkstone/wbauth/userstore/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const uniqueViolation = "23505"

// PostgresConfig tunes the connection pool. Zero values keep pgxpool defaults.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	QueryTimeout    time.Duration
}

// Postgres stores users in the users table.
type Postgres struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

var _ wbauth.UserProvider = (*Postgres)(nil)

const (
	qUserInsert = `
INSERT INTO users (email, username, password_hash)
VALUES ($1, $2, $3)
RETURNING id::text, email, username, password_hash, created_at;`

	qUserByID = `
SELECT id::text, email, username, password_hash, created_at
FROM users
WHERE id::text = $1;`

	qUserByEmail = `
SELECT id::text, email, username, password_hash, created_at
FROM users
WHERE email = $1;`
)

// OpenPostgres connects, pings and returns a store. Call Migrate before first use.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pcfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(hctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return NewPostgres(pool, cfg.QueryTimeout), nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool, queryTimeout time.Duration) *Postgres {
	return &Postgres{pool: pool, queryTimeout: queryTimeout}
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Migrate applies the embedded goose migrations through a database/sql handle over
// the same pool.
func (p *Postgres) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()
	return runMigrations(ctx, db)
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (wbauth.UserRecord, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return scanUser(p.pool.QueryRow(ctx, qUserByEmail, email))
}

func (p *Postgres) GetUserByID(ctx context.Context, userID string) (wbauth.UserRecord, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return scanUser(p.pool.QueryRow(ctx, qUserByID, userID))
}

func (p *Postgres) CreateUser(ctx context.Context, input wbauth.CreateUserInput) (wbauth.UserRecord, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	u, err := scanUser(p.pool.QueryRow(ctx, qUserInsert, input.Email, input.Username, input.PasswordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return wbauth.UserRecord{}, wbauth.ErrAccountExists
		}
		return wbauth.UserRecord{}, fmt.Errorf("user insert: %w", err)
	}
	return u, nil
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.queryTimeout)
}

func scanUser(row pgx.Row) (wbauth.UserRecord, error) {
	var u wbauth.UserRecord
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wbauth.UserRecord{}, wbauth.ErrUserNotFound
		}
		return wbauth.UserRecord{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
