// Package media loads remote images and voice clips for display. Images are
// decoded, resized and kept in a byte-bounded LRU; audio is cached on disk.
// Every loader method is called from the main execution context and every
// completion is delivered there.
package media

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/kendovivi/timebank-client/internal/domain"
	"github.com/kendovivi/timebank-client/internal/mainloop"
	"github.com/kendovivi/timebank-client/internal/workerpool"
)

// ErrClosed is the cause attached to loads started after Close.
var ErrClosed = errors.New("media loader closed")

// Fetcher downloads raw bytes. A non-200 status is reported as Http(status).
type Fetcher interface {
	FetchRaw(ctx context.Context, url string) ([]byte, *domain.APIError)
}

// Activity toggles the network activity indicator.
type Activity interface {
	BeginActivity()
	EndActivity()
}

type nopActivity struct{}

func (nopActivity) BeginActivity() {}
func (nopActivity) EndActivity()   {}

// ImageResult is delivered to image completions.
type ImageResult struct {
	Image image.Image
	Err   *domain.APIError
}

// AudioResult is delivered to audio completions.
type AudioResult struct {
	Path string
	Err  *domain.APIError
}

// Loader fetches media off the main context and hands results back to it.
type Loader struct {
	fetcher  Fetcher
	main     mainloop.Executor
	pool     *workerpool.Pool
	ownsPool bool
	images   *ImageCache
	audio    *AudioCache
	slots    *slotArena
	activity Activity
	logger   *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPool shares a worker pool. The loader does not close it.
func WithPool(p *workerpool.Pool) LoaderOption {
	return func(l *Loader) {
		l.pool = p
	}
}

// WithImageCache sets the in-memory image cache.
func WithImageCache(c *ImageCache) LoaderOption {
	return func(l *Loader) {
		l.images = c
	}
}

// WithAudioCache sets the on-disk audio cache.
func WithAudioCache(c *AudioCache) LoaderOption {
	return func(l *Loader) {
		l.audio = c
	}
}

// WithActivity sets the hook toggled around audio downloads.
func WithActivity(a Activity) LoaderOption {
	return func(l *Loader) {
		l.activity = a
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader that downloads through fetcher and delivers on
// main.
func NewLoader(fetcher Fetcher, main mainloop.Executor, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher:  fetcher,
		main:     main,
		slots:    newSlotArena(),
		activity: nopActivity{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.pool == nil {
		l.pool = workerpool.New(workerpool.DefaultSize)
		l.ownsPool = true
	}
	if l.images == nil {
		l.images = NewImageCache(DefaultImageBudget, l.logger)
	}
	if l.audio == nil {
		l.audio = NewAudioCache(filepath.Join(os.TempDir(), "timebank", "voice"))
	}
	return l
}

// Images returns the in-memory image cache.
func (l *Loader) Images() *ImageCache {
	return l.images
}

// Audio returns the on-disk audio cache.
func (l *Loader) Audio() *AudioCache {
	return l.audio
}

// Close stops the worker pool if the loader created it.
func (l *Loader) Close() {
	if l.ownsPool {
		l.pool.Close()
	}
}

// NewSlot allocates a display slot.
func (l *Loader) NewSlot() Slot {
	return l.slots.newSlot()
}

// ReleaseSlot forgets slot, for example when its view is recycled. Any
// in-flight load for it is cancelled and its result dropped.
func (l *Loader) ReleaseSlot(slot Slot) {
	l.slots.release(slot)
}

// LoadImage shows url in slot at the requested size (0 = unspecified). A
// cache hit calls onComplete synchronously. Otherwise a background task
// fetches and processes the image; its result reaches onComplete only if
// it is still the slot's current task. Requesting the key the slot is
// already loading is a no-op, and so is loading into a released slot.
func (l *Loader) LoadImage(ctx context.Context, url string, slot Slot, width, height int, onComplete func(ImageResult)) {
	key := ImageKey{URL: url, Width: width, Height: height}

	if img, ok := l.images.Get(key); ok {
		// A cached image replaces whatever the slot was still loading.
		if !l.slots.invalidate(slot) {
			l.logger.Debug("ignoring load into released slot", slog.String("key", key.String()))
			return
		}
		l.logger.Debug("image cache hit", slog.String("key", key.String()))
		onComplete(ImageResult{Image: img})
		return
	}

	taskCtx, cancel := context.WithCancel(ctx)
	gen, started := l.slots.begin(slot, key, cancel)
	if !started {
		cancel()
		return
	}

	deliver := func(res ImageResult) {
		l.main.Post(func() {
			if !l.slots.finish(slot, gen) {
				l.logger.Debug("dropping stale image result", slog.String("key", key.String()))
				return
			}
			onComplete(res)
		})
	}

	submitted := l.pool.Submit(taskCtx, func(ctx context.Context) {
		defer cancel()
		deliver(l.fetchImage(ctx, key))
	})
	if !submitted {
		cancel()
		deliver(ImageResult{Err: domain.NewAPIError(domain.KindTransport).WithCause(ErrClosed)})
	}
}

func (l *Loader) fetchImage(ctx context.Context, key ImageKey) ImageResult {
	data, apiErr := l.fetcher.FetchRaw(ctx, key.URL)
	if apiErr != nil {
		return ImageResult{Err: apiErr}
	}

	img, err := Process(data, key.Width, key.Height)
	if err != nil {
		l.logger.Warn("image decode failed",
			slog.String("url", key.URL),
			slog.String("size", humanize.IBytes(uint64(len(data)))),
			slog.String("error", err.Error()),
		)
		return ImageResult{Err: domain.NewAPIError(domain.KindEmptyBody).WithCause(err)}
	}

	l.images.Add(key, img)
	l.logger.Debug("image cached",
		slog.String("key", key.String()),
		slog.String("cache_used", humanize.IBytes(uint64(l.images.Bytes()))),
	)
	return ImageResult{Image: img}
}

// LoadAudio makes the clip at url available as a local file. An existing
// non-empty cache file is delivered synchronously without a network call.
// Concurrent loads of the same URL are not merged; the last write wins.
func (l *Loader) LoadAudio(ctx context.Context, url string, onComplete func(AudioResult)) {
	if path, ok := l.audio.Lookup(url); ok {
		l.logger.Debug("audio cache hit", slog.String("path", path))
		onComplete(AudioResult{Path: path})
		return
	}
	if l.audio.Path(url) == "" {
		l.main.Post(func() { onComplete(AudioResult{Err: domain.NewAPIError(domain.KindInvalidURL)}) })
		return
	}

	l.activity.BeginActivity()
	deliver := func(res AudioResult) {
		l.activity.EndActivity()
		l.main.Post(func() { onComplete(res) })
	}

	submitted := l.pool.Submit(ctx, func(ctx context.Context) {
		deliver(l.fetchAudio(ctx, url))
	})
	if !submitted {
		deliver(AudioResult{Err: domain.NewAPIError(domain.KindTransport).WithCause(ErrClosed)})
	}
}

func (l *Loader) fetchAudio(ctx context.Context, url string) AudioResult {
	data, apiErr := l.fetcher.FetchRaw(ctx, url)
	if apiErr != nil {
		return AudioResult{Err: apiErr}
	}
	if len(data) == 0 {
		return AudioResult{Err: domain.NewAPIError(domain.KindEmptyBody)}
	}

	path, err := l.audio.Store(url, data)
	if err != nil {
		l.logger.Error("failed to store audio", slog.String("url", url), slog.String("error", err.Error()))
		return AudioResult{Err: domain.NewAPIError(domain.KindIO).WithCause(err)}
	}
	l.logger.Debug("audio cached",
		slog.String("path", path),
		slog.String("size", humanize.IBytes(uint64(len(data)))),
	)
	return AudioResult{Path: path}
}
