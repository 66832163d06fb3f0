package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskhive/tasks-api/internal"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const otelName = "github.com/taskhive/tasks-api/internal/postgresql"

const (
	pgCodeUniqueViolation     = "23505"
	pgCodeForeignKeyViolation = "23503"
	pgCodeCheckViolation      = "23514"
)

// translateError converts driver-level failures into the domain error
// taxonomy so constraint violations never leak out raw.
func translateError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeUniqueViolation:
			return internal.WrapErrorf(err, internal.ErrorCodeConflict, "%s: already exists", msg)
		case pgCodeForeignKeyViolation:
			return internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "%s: referenced record does not exist", msg)
		case pgCodeCheckViolation:
			return internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "%s: value out of range", msg)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return internal.WrapErrorf(err, internal.ErrorCodeUnavailable, "%s: datastore unavailable", msg)
	}

	return internal.WrapErrorf(err, internal.ErrorCodeUnknown, msg)
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// inTx runs fn inside a transaction, committing on success and rolling back
// on any error, including a request abort mid-flight.
func inTx(ctx context.Context, pool beginner, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnavailable, "pool.Begin")
	}

	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translateError(err, "tx.Commit")
	}

	return nil
}

func newOTELSpan(ctx context.Context, name string) trace.Span {
	_, span := otel.Tracer(otelName).Start(ctx, name)

	span.SetAttributes(semconv.DBSystemPostgreSQL)

	return span
}
