package board

import (
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/metrics"
	"github.com/JonMunkholm/clueboard/internal/store"
	"github.com/google/uuid"
)

// Service provides the board operations on top of a Store.
type Service struct {
	store   Store
	metrics *metrics.Collector
	now     func() time.Time
	newID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records operation counters on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now, used for default import timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service instance.
func NewService(st Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the backing store.
func (s *Service) Store() Store {
	return s.store
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// notFound turns store.ErrNoRows into a classified not-found error and wraps
// anything else as internal.
func notFound(err error, what string, id int64) error {
	if errors.Is(err, store.ErrNoRows) {
		return apperr.NotFound(fmt.Sprintf("%s %d not found", what, id))
	}
	return internal(err)
}

func internal(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err)
}
