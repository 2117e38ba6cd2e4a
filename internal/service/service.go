// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the store: the event lifecycle and the
// participation request moderation engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-participation/internal/metrics"
	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

const defaultMaxRetries = 5

// Option customises a service.
type Option func(*base)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *base) { b.log = l }
}

// WithMaxRetries bounds the attempts of an atomic unit that keeps losing
// write conflicts.
func WithMaxRetries(n uint) Option {
	return func(b *base) {
		if n > 0 {
			b.maxRetries = n
		}
	}
}

// base carries what both services share.
type base struct {
	store      Store
	log        *zap.Logger
	now        func() time.Time
	maxRetries uint
	validate   *validator.Validate
}

func newBase(store Store, opts []Option) base {
	b := base{
		store:      store,
		log:        zap.NewNop(),
		now:        time.Now,
		maxRetries: defaultMaxRetries,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) clock() time.Time {
	return b.now().UTC()
}

// atomically runs fn as one unit of work, re-running the whole
// read-check-write sequence when the store reports a write conflict.
// Business rule failures are returned on the first attempt.
func (b *base) atomically(ctx context.Context, fn func(tx Tx) error) error {
	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := b.store.Atomically(ctx, fn)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, model.ErrConflict):
			metrics.RecordTxRetry()
			b.log.Debug("atomic unit conflicted, retrying", zap.Int("attempt", attempt), zap.Error(err))
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 5 * time.Millisecond
	eb.MaxInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(b.maxRetries),
	)
	return err
}

// validateStruct runs the struct tag validation of a request payload.
func (b *base) validateStruct(v any) error {
	if err := b.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed on the '%s' rule", model.ErrValidation, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	return nil
}

func checkRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("%w: end date can't be before start date", model.ErrInvalidSchedule)
	}
	return nil
}

func normalizePage(p model.Page) model.Page {
	if p.From < 0 {
		p.From = 0
	}
	if p.Size <= 0 {
		p.Size = model.DefaultPage.Size
	}
	return p
}
