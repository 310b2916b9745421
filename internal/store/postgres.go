// AngelaMos | 2026
// postgres.go

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

// Postgres is the Store backed by a sqlx pool. Inside InTx the same type is
// bound to the transaction instead of the pool.
type Postgres struct {
	db *sqlx.DB
	q  core.DBTX
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

func (p *Postgres) Users() UserRepository {
	return &userRepository{db: p.q}
}

func (p *Postgres) Plans() PlanRepository {
	return &planRepository{db: p.q}
}

func (p *Postgres) Assignments() AssignmentRepository {
	return &assignmentRepository{db: p.q}
}

func (p *Postgres) InTx(ctx context.Context, fn func(tx Store) error) error {
	if p.db == nil {
		return fn(p)
	}

	return core.InTx(ctx, p.db, func(tx *sqlx.Tx) error {
		return fn(&Postgres{q: tx})
	})
}

func (p *Postgres) Ping(ctx context.Context) error {
	if p.db == nil {
		return nil
	}
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func pgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

func isUniqueViolation(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == pgUniqueViolation
}

// foreignKeyConstraint returns the violated constraint name, or "" when err
// is not a foreign key violation.
func foreignKeyConstraint(err error) string {
	pgErr := pgError(err)
	if pgErr == nil || pgErr.Code != pgForeignKeyViolation {
		return ""
	}
	return pgErr.ConstraintName
}

// isInvalidID reports a malformed UUID literal; callers treat it as an id
// that does not resolve.
func isInvalidID(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == pgInvalidText
}

var _ Store = (*Postgres)(nil)
