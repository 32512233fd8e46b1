package remote

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/illarion/boveda/internal/vault"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Postgres keeps one row per device in the vaults table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database. Migrations are not run.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects with the pgx driver and applies the embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewPostgres(db), nil
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "migrations")
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Get(ctx context.Context, deviceKey string) (vault.Container, error) {
	query := `SELECT salt, data, updated_at FROM vaults WHERE device_id = $1`

	var (
		c       vault.Container
		updated sql.NullTime
	)
	err := p.db.QueryRowContext(ctx, query, deviceKey).Scan(&c.Salt, &c.Data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return vault.Container{}, ErrNotFound
	}
	if err != nil {
		return vault.Container{}, transportError("db select", err)
	}
	if updated.Valid {
		c.UpdatedAt = updated.Time.UTC()
	}
	if err := c.Validate(); err != nil {
		return vault.Container{}, err
	}
	return c, nil
}

func (p *Postgres) Put(ctx context.Context, deviceKey string, c vault.Container) error {
	if err := c.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO vaults (device_id, salt, data, updated_at, stored_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (device_id)
		DO UPDATE SET
			salt = EXCLUDED.salt,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at,
			stored_at = EXCLUDED.stored_at;
	`
	updated := sql.NullTime{Time: c.UpdatedAt, Valid: !c.UpdatedAt.IsZero()}
	res, err := p.db.ExecContext(ctx, query, deviceKey, c.Salt, c.Data, updated)
	if err != nil {
		return transportError("db upsert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return transportError("rows affected", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}
