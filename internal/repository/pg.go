package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/yourusername/vocabot/internal/models"
)

type Postgres struct {
	db   *sqlx.DB
	tx   *sqlx.Tx
	psql squirrel.StatementBuilderType
}

func NewDB(dsn string, maxIdle, maxOpen int) (*Postgres, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxIdleConns(maxIdle)
	db.SetMaxOpenConns(maxOpen)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Minute * 10)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	return &Postgres{db: db, psql: psql}, nil
}

func (r *Postgres) Close() error {
	return r.db.Close()
}

func (r *Postgres) Up(dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(r.db.DB, dir); err != nil {
		return fmt.Errorf("run migrations (dir: %s): %w", dir, err)
	}

	return nil
}

func (r *Postgres) begin(ctx context.Context) (*Postgres, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &Postgres{
		db:   r.db,
		tx:   tx,
		psql: r.psql,
	}, nil
}

func (r *Postgres) commit() error {
	if r.tx == nil {
		return fmt.Errorf("no active transaction to commit")
	}
	return r.tx.Commit()
}

func (r *Postgres) rollback() error {
	if r.tx == nil {
		return fmt.Errorf("no active transaction to rollback")
	}
	return r.tx.Rollback()
}

// RunInTx runs fn against a transaction-bound copy of the repository.
// Nested calls reuse the outer transaction.
func (r *Postgres) RunInTx(ctx context.Context, fn func(models.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	txRepo, err := r.begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = txRepo.rollback()
			panic(p)
		}
	}()

	if err = fn(txRepo); err != nil {
		_ = txRepo.rollback()
		return err
	}

	if err = txRepo.commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (r *Postgres) executor() sqlx.ExtContext {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *Postgres) exec(ctx context.Context, builder squirrel.Sqlizer) (sql.Result, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query: %w", err)
	}

	return r.executor().ExecContext(ctx, query, args...)
}

func (r *Postgres) get(ctx context.Context, dest any, builder squirrel.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query: %w", err)
	}

	return sqlx.GetContext(ctx, r.executor(), dest, query, args...)
}

func (r *Postgres) selectAll(ctx context.Context, dest any, builder squirrel.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query: %w", err)
	}

	return sqlx.SelectContext(ctx, r.executor(), dest, query, args...)
}
