package file

import (
	"log/slog"
	"time"

	"github.com/aretw0/grapher/internal/logging"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/google/uuid"
)

// Option configures a Store or a Locker.
type Option func(*options)

type options struct {
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time
	token  func() string
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// WithClock overrides the time source used to stamp lock records.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithTokenSource overrides the generator of lock ownership tokens.
func WithTokenSource(token func() string) Option {
	return func(o *options) {
		o.token = token
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: logging.NewNop(),
		now:    time.Now,
		token:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
