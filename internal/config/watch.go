package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Provider holds the configuration loaded from a file and reloads it when
// the file changes.
type Provider struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	mu      sync.RWMutex
	current *Config
}

// NewProvider creates a file-backed provider. A nil logger means
// slog.Default().
func NewProvider(path string, logger *slog.Logger) (*Provider, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		path:   path,
		logger: logger,
	}, nil
}

// Load loads the configuration from the file.
func (p *Provider) Load() (*Config, error) {
	cfg, err := Load(p.path)
	if err != nil {
		return nil, fmt.Errorf("load config from %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.current = cfg
	p.mu.Unlock()
	p.logger.Info("config loaded", slog.String("path", p.path))

	return cfg, nil
}

// Current returns the last successfully loaded configuration, or nil.
func (p *Provider) Current() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Watch reloads the file whenever it is written and passes each valid
// result to onChange. Invalid edits are logged and skipped. Watching stops
// when ctx is done or Close is called.
func (p *Provider) Watch(ctx context.Context, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(p.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.watcher = watcher
	p.mu.Unlock()

	p.logger.Info("watching config file for changes", slog.String("path", p.path))

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("config watch stopped")
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				p.logger.Info("config file changed, reloading", slog.String("path", event.Name))
				cfg, err := p.Load()
				if err != nil {
					p.logger.Error("failed to reload config",
						slog.String("error", err.Error()),
						slog.String("path", p.path))
					continue
				}
				onChange(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Error("config watch error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}

// Close stops watching the config file.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.watcher != nil {
		err := p.watcher.Close()
		p.watcher = nil
		return err
	}

	return nil
}

// Watch is a shorthand for a provider on path watched until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	p, err := NewProvider(path, nil)
	if err != nil {
		return err
	}
	return p.Watch(ctx, onChange)
}
