package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kendovivi/timebank-client/internal/config"
	"github.com/kendovivi/timebank-client/internal/connectivity"
	"github.com/kendovivi/timebank-client/internal/dispatch"
	"github.com/kendovivi/timebank-client/internal/mainloop"
	"github.com/kendovivi/timebank-client/internal/session"
)

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithConfig uses cfg as is. Changes are not watched.
func WithConfig(cfg *config.Config) Option {
	return func(c *Client) error {
		if cfg == nil {
			return fmt.Errorf("config must not be nil")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		c.cfg = cfg
		return nil
	}
}

// WithFileConfig loads path and, once started, watches it for changes to
// the client identification.
func WithFileConfig(path string) Option {
	return func(c *Client) error {
		provider, err := config.NewProvider(path, c.logger)
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		c.provider = provider
		return nil
	}
}

// WithLogger sets a custom logger. Options applied after it inherit it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithSessionStore sets the token store. The caller keeps ownership.
func WithSessionStore(store session.Store) Option {
	return func(c *Client) error {
		c.store = store
		return nil
	}
}

// WithSQLiteSession persists the token in a SQLite database at path. The
// client closes it.
func WithSQLiteSession(path string) Option {
	return func(c *Client) error {
		store, err := session.NewSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("create sqlite session: %w", err)
		}
		c.store = store
		c.closers = append(c.closers, store.Close)
		return nil
	}
}

// WithConnectivity sets the pre-flight reachability check.
func WithConnectivity(g connectivity.Guard) Option {
	return func(c *Client) error {
		c.guard = g
		return nil
	}
}

// WithHTTPClient replaces the HTTP client built from the config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithActivityIndicator sets the indicator toggled around requests.
func WithActivityIndicator(ind dispatch.ActivityIndicator) Option {
	return func(c *Client) error {
		c.indicator = ind
		return nil
	}
}

// WithExecutor delivers completions on an existing main context instead of
// the client's own loop. Start then does not run a loop.
func WithExecutor(exec mainloop.Executor) Option {
	return func(c *Client) error {
		c.executor = exec
		return nil
	}
}

// WithTracing exports spans to w (stdout when nil) regardless of
// telemetry.enabled.
func WithTracing(w io.Writer) Option {
	return func(c *Client) error {
		c.tracing = true
		c.traceWriter = w
		return nil
	}
}
