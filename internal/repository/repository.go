// Package repository implements all database queries for the event
// participation system. It uses pgx directly (no ORM) for transparency and
// performance.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// PostgreSQL error codes the store reacts to.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

const (
	constraintUniqueRequest = "uq_request_event_requester"
	constraintEventCapacity = "ck_event_capacity"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries runs every statement against db, a pool or a transaction.
type queries struct {
	db querier
}

// Store is the PostgreSQL implementation of service.Store.
type Store struct {
	queries
	pool *pgxpool.Pool
}

// NewStore constructs a Store on top of pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// Atomically runs fn inside one database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (s *Store) Atomically(ctx context.Context, fn func(tx service.Tx) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&queries{db: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return wrapErr("commit transaction", err)
	}
	return nil
}

// wrapErr translates driver errors into domain error kinds and adds op as
// context to everything else.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected:
			return fmt.Errorf("%w: %s: %s", model.ErrConflict, op, pgErr.Message)
		case pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == constraintUniqueRequest:
			return fmt.Errorf("%w: request for this event already exists", model.ErrDuplicateRequest)
		case pgErr.Code == codeCheckViolation && pgErr.ConstraintName == constraintEventCapacity:
			return fmt.Errorf("%w: %s", model.ErrCapacityExceeded, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notFound maps pgx.ErrNoRows to model.ErrNotFound.
func notFound(op, what, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s with id %s not found", model.ErrNotFound, what, id)
	}
	return wrapErr(op, err)
}

// GetUser implements service.Reader.
func (q *queries) GetUser(ctx context.Context, id string) (*model.UserShort, error) {
	var u model.UserShort
	err := q.db.QueryRow(ctx, `SELECT id, name FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Name)
	if err != nil {
		return nil, notFound("get user", "user", id, err)
	}
	return &u, nil
}

// GetCategory implements service.Reader.
func (q *queries) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category
	err := q.db.QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, notFound("get category", "category", id, err)
	}
	return &c, nil
}
