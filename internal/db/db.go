// Package db opens the Postgres pool and owns the schema migrations.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/obs"
)

// Postgres error codes mapped onto API errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// Querier is the subset of pgxpool.Pool and pgx.Tx that stores use.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts transactions. *pgxpool.Pool implements it.
type TxBeginner interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect parses url, installs the tracing hook and pings the database.
func Connect(ctx context.Context, url, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// InTx runs fn in a transaction, committing when it returns nil.
func InTx(ctx context.Context, db TxBeginner, fn func(pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Error translates store errors for resource into API errors. Anything it
// does not recognise is returned unchanged.
func Error(resource string, err error) error {
	if err == nil {
		return nil
	}
	if common.IsAppError(err) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NotFound(resource, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return common.Conflict(resource+" already exists", err)
		case codeForeignKeyViolation:
			return common.BadRequest(constraintField(pgErr), "referenced record does not exist", err)
		case codeCheckViolation:
			return common.BadRequest(constraintField(pgErr), "value violates "+pgErr.ConstraintName, err)
		}
	}
	return err
}

// DeleteError is Error for DELETE statements. A foreign key violation there
// means other rows still point at the record, which is a conflict rather
// than bad input.
func DeleteError(resource string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
		msg := resource + " is still referenced"
		if pgErr.TableName != "" {
			msg += " by " + pgErr.TableName
		}
		return common.Conflict(msg, err)
	}
	return Error(resource, err)
}

func constraintField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	return pgErr.ConstraintName
}
