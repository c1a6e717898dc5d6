package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	log "github.com/echocat/slf4g"
	"github.com/google/uuid"
)

// Engine kinds.
const (
	KindMemory  = "memory"
	KindRemote  = "remote"
	KindProcess = "process"
)

// Config selects and configures the engine adapter.
type Config struct {
	Kind string
	// URL of the engine host, for KindRemote.
	URL string
	// Command line of the engine, for KindProcess.
	Command   []string
	QueueSize int
	// Parameters of the in-process engine, for KindMemory. Nil uses
	// DefaultParameters.
	Parameters Table

	// Reconnect backoff. Zero values use the backoff package defaults.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Attachment is one successful connection to an engine.
type Attachment struct {
	Conn
	ID         string
	Kind       string
	AttachedAt time.Time
}

// Connect attaches to the configured engine, retrying with exponential
// backoff until it succeeds or ctx ends. Configuration errors are not
// retried.
func Connect(ctx context.Context, cfg Config) (*Attachment, error) {
	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}

	attempt := 0
	conn, err := backoff.Retry(ctx, func() (Conn, error) {
		attempt++
		return open(ctx, cfg)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WithError(err).
				With("kind", cfg.Kind).
				With("attempt", attempt).
				With("retryIn", next).
				Warn("Cannot attach engine, retrying.")
		}),
	)
	if err != nil {
		return nil, err
	}

	a := &Attachment{
		Conn:       conn,
		ID:         uuid.NewString(),
		Kind:       cfg.Kind,
		AttachedAt: time.Now(),
	}
	log.With("attachment", a.ID).
		With("kind", a.Kind).
		With("parameters", len(conn.Parameters())).
		Debug("Engine connection established.")
	return a, nil
}

func open(ctx context.Context, cfg Config) (Conn, error) {
	switch cfg.Kind {
	case KindMemory, "":
		params := cfg.Parameters
		if params == nil {
			params = DefaultParameters()
		}
		return NewMemory(params), nil
	case KindRemote:
		if cfg.URL == "" {
			return nil, backoff.Permanent(fmt.Errorf("remote engine needs a url"))
		}
		return DialRemote(ctx, cfg.URL, cfg.QueueSize)
	case KindProcess:
		if len(cfg.Command) == 0 {
			return nil, backoff.Permanent(fmt.Errorf("process engine needs a command"))
		}
		return StartProcess(ctx, cfg.Command, cfg.QueueSize)
	default:
		return nil, backoff.Permanent(fmt.Errorf("unknown engine kind %q", cfg.Kind))
	}
}
