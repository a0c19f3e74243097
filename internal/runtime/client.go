// Package runtime wires the client context: configuration, the main loop,
// the worker pool, transport, session, dispatcher, media loader and the
// endpoint catalogue. Nothing in it is global; tests build their own.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kendovivi/timebank-client/internal/config"
	"github.com/kendovivi/timebank-client/internal/connectivity"
	"github.com/kendovivi/timebank-client/internal/dispatch"
	"github.com/kendovivi/timebank-client/internal/mainloop"
	"github.com/kendovivi/timebank-client/internal/media"
	"github.com/kendovivi/timebank-client/internal/pkg/transport"
	"github.com/kendovivi/timebank-client/internal/session"
	"github.com/kendovivi/timebank-client/internal/telemetry"
	"github.com/kendovivi/timebank-client/internal/webapi"
	"github.com/kendovivi/timebank-client/internal/workerpool"
)

// ServiceName names the client in exported spans.
const ServiceName = "timebank-client"

// Client owns every long-lived component of the networking layer.
type Client struct {
	// Dependencies (injected via options)
	cfg         *config.Config
	provider    *config.Provider
	logger      *slog.Logger
	store       session.Store
	guard       connectivity.Guard
	httpClient  *http.Client
	indicator   dispatch.ActivityIndicator
	executor    mainloop.Executor
	tracing     bool
	traceWriter io.Writer

	// Built in New
	loop       *mainloop.Loop
	pool       *workerpool.Pool
	tracer     *sdktrace.TracerProvider
	dispatcher *dispatch.Dispatcher
	media      *media.Loader
	api        *webapi.API
	closers    []func() error

	// Lifecycle management
	mu      sync.Mutex
	cancel  context.CancelFunc
	runDone chan struct{}
	closed  bool
}

// New builds a client. Without WithConfig or WithFileConfig the built-in
// defaults are used.
func New(opts ...Option) (*Client, error) {
	c := &Client{logger: slog.Default()}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			c.closeAll()
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if err := c.build(); err != nil {
		c.closeAll()
		return nil, err
	}
	return c, nil
}

func (c *Client) build() error {
	if c.cfg == nil {
		if c.provider != nil {
			cfg, err := c.provider.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.cfg = cfg
		} else {
			c.cfg = config.Default()
		}
	}
	cfg := c.cfg

	if c.executor == nil {
		c.loop = mainloop.New()
		c.executor = c.loop
	}

	if c.store == nil {
		if cfg.Session.Path != "" {
			store, err := session.NewSQLiteStore(cfg.Session.Path)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			c.store = store
			c.closers = append(c.closers, store.Close)
		} else {
			c.logger.Debug("no session path configured, token kept in memory")
			c.store = session.NewMemoryStore()
		}
	}

	if c.guard == nil {
		if cfg.Network.ProbeAddress != "" {
			c.guard = connectivity.NewDialProbe(cfg.Network.ProbeAddress, cfg.Network.ProbeTimeout)
		} else {
			c.guard = connectivity.Always
		}
	}

	if c.tracing || cfg.Telemetry.Enabled {
		tp, err := telemetry.NewTracerProvider(telemetry.Options{
			ServiceName:    ServiceName,
			ServiceVersion: cfg.Client.AppVersion,
			Writer:         c.traceWriter,
		})
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		c.tracer = tp
	}

	if c.httpClient == nil {
		topts := transport.Options{}
		if c.tracer != nil {
			topts.Tracing = true
			topts.TracerProvider = c.tracer
		}
		c.httpClient = transport.NewClient(topts)
	}

	budget, err := cfg.Cache.ImageBudgetBytes()
	if err != nil {
		return err
	}

	c.pool = workerpool.New(cfg.Network.Workers)

	dopts := []dispatch.Option{
		dispatch.WithHTTPClient(c.httpClient),
		dispatch.WithGuard(c.guard),
		dispatch.WithSession(c.store),
		dispatch.WithPool(c.pool),
		dispatch.WithRetryPolicy(retryPolicy(cfg)),
		dispatch.WithIdentity(identity(cfg)),
		dispatch.WithLogger(c.logger),
	}
	if c.indicator != nil {
		dopts = append(dopts, dispatch.WithIndicator(c.indicator))
	}
	if c.tracer != nil {
		dopts = append(dopts, dispatch.WithTracerProvider(c.tracer))
	}
	c.dispatcher = dispatch.New(c.executor, dopts...)

	c.media = media.NewLoader(c.dispatcher, c.executor,
		media.WithPool(c.pool),
		media.WithImageCache(media.NewImageCache(budget, c.logger)),
		media.WithAudioCache(media.NewAudioCache(filepath.Join(cfg.Cache.Dir, "voice"))),
		media.WithActivity(c.dispatcher),
		media.WithLogger(c.logger),
	)

	c.api = webapi.New(c.dispatcher, c.store,
		webapi.WithBaseURL(cfg.API.BaseURL),
		webapi.WithMediaUploadURL(cfg.API.MediaUploadURL),
		webapi.WithLogger(c.logger),
	)

	c.logger.Info("client initialized",
		slog.String("base_url", cfg.API.BaseURL),
		slog.Int("workers", cfg.Network.Workers),
		slog.Bool("tracing", c.tracer != nil))
	return nil
}

func retryPolicy(cfg *config.Config) dispatch.RetryPolicy {
	return dispatch.RetryPolicy{
		Timeout:    cfg.Network.Timeout,
		MaxRetries: cfg.Network.MaxRetries,
		Backoff:    cfg.Network.Backoff,
		Multiplier: cfg.Network.BackoffMultiplier,
	}
}

func identity(cfg *config.Config) dispatch.ClientIdentity {
	return dispatch.ClientIdentity{
		APIVersion:    cfg.API.Version,
		AppName:       cfg.Client.AppName,
		AppVersion:    cfg.Client.AppVersion,
		DeviceModel:   cfg.Client.DeviceModel,
		OSVersion:     cfg.Client.OSVersion,
		AdvertisingID: cfg.Client.AdvertisingID,
	}
}

// Start runs the main loop on its own goroutine, unless an external
// executor was supplied, and starts watching the config file.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("client closed")
	}
	if c.cancel != nil {
		return errors.New("client already started")
	}

	ctx, c.cancel = context.WithCancel(ctx)

	if c.loop != nil {
		c.runDone = make(chan struct{})
		go func() {
			defer close(c.runDone)
			if err := c.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("main loop stopped", slog.String("error", err.Error()))
			}
		}()
	}

	if c.provider != nil {
		if err := c.provider.Watch(ctx, c.applyConfig); err != nil {
			c.logger.Warn("config watch unavailable", slog.String("error", err.Error()))
		}
	}

	c.logger.Info("client started")
	return nil
}

// applyConfig takes the identification headers from a reloaded config.
// Everything else needs a new client.
func (c *Client) applyConfig(cfg *config.Config) {
	c.dispatcher.SetIdentity(identity(cfg))

	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()

	c.logger.Info("client identity reloaded",
		slog.String("app_version", cfg.Client.AppVersion),
		slog.Int("api_version", cfg.API.Version))
}

// Close stops the loop and the workers, flushes spans and closes the
// session store. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, runDone := c.cancel, c.runDone
	c.mu.Unlock()

	c.logger.Info("shutting down client")

	c.pool.Close()
	if c.loop != nil {
		c.loop.Close()
	}
	if cancel != nil {
		cancel()
	}
	if runDone != nil {
		<-runDone
	}

	err := c.closeAll()
	c.logger.Info("client shutdown complete")
	return err
}

func (c *Client) closeAll() error {
	var errs []error
	if c.provider != nil {
		if err := c.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close config watcher: %w", err))
		}
	}
	if c.tracer != nil {
		if err := c.tracer.Shutdown(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	for _, err := range errs {
		c.logger.Error("failed to close resource", slog.String("error", err.Error()))
	}
	return errors.Join(errs...)
}

// Config returns the active configuration.
func (c *Client) Config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Executor returns the main execution context completions arrive on.
func (c *Client) Executor() mainloop.Executor { return c.executor }

// Session returns the token store.
func (c *Client) Session() session.Store { return c.store }

// Dispatcher returns the request dispatcher.
func (c *Client) Dispatcher() *dispatch.Dispatcher { return c.dispatcher }

// Media returns the image and audio loader.
func (c *Client) Media() *media.Loader { return c.media }

// API returns the endpoint catalogue.
func (c *Client) API() *webapi.API { return c.api }
