package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/pkg/logger"
	"github.com/okian/routinerec/pkg/metrics"
)

// Instrumented records latency for every call and folds backend failures into
// ErrUnavailable. Not-found, bad ids and context errors pass through.
type Instrumented struct {
	inner Backend
	log   logger.Logger
}

// Instrument wraps b.
func Instrument(b Backend, opts ...Option) *Instrumented {
	s := &Instrumented{inner: b, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements Store.
func (s *Instrumented) Load(ctx context.Context, id string) (model.UserData, error) {
	start := time.Now()
	data, err := s.inner.Load(ctx, id)
	metrics.RecordStoreLatency("load", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return model.UserData{}, s.classify(ctx, "load", id, err)
	}
	return data, nil
}

// Save implements Store.
func (s *Instrumented) Save(ctx context.Context, id string, data model.UserData) error {
	start := time.Now()
	err := s.inner.Save(ctx, id, data)
	metrics.RecordStoreLatency("save", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return s.classify(ctx, "save", id, err)
	}
	return nil
}

// Close closes the wrapped backend.
func (s *Instrumented) Close() error { return s.inner.Close() }

func (s *Instrumented) classify(ctx context.Context, op, id string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidID):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrUnavailable):
	default:
		err = fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, id, err)
	}
	metrics.RecordStoreError(op)
	s.log.Error(ctx, "store operation failed",
		logger.String("op", op),
		logger.String("user_id", id),
		logger.Error(err),
	)
	return err
}

// IDs implements Lister when the wrapped backend does.
func (s *Instrumented) IDs(ctx context.Context) ([]string, error) {
	l, ok := s.inner.(Lister)
	if !ok {
		return nil, fmt.Errorf("%w: backend cannot list records", ErrUnavailable)
	}
	ids, err := l.IDs(ctx)
	if err != nil {
		return nil, s.classify(ctx, "list", "", err)
	}
	return ids, nil
}
