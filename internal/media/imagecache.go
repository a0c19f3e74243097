package media

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultImageBudget is the in-memory image cache size in bytes.
const DefaultImageBudget = 32 << 20

// ImageKey identifies a decoded image at a requested size. Zero width or
// height means "not requested".
type ImageKey struct {
	URL    string
	Width  int
	Height int
}

func (k ImageKey) String() string {
	return fmt.Sprintf("%s@%dx%d", k.URL, k.Width, k.Height)
}

// imageCost is the RGBA footprint of img.
func imageCost(img image.Image) int64 {
	b := img.Bounds()
	return 4 * int64(b.Dx()) * int64(b.Dy())
}

// ImageCache is a least-recently-used cache bounded by total decoded bytes.
type ImageCache struct {
	mu     sync.Mutex
	lru    *simplelru.LRU[ImageKey, image.Image]
	budget int64
	used   int64
	logger *slog.Logger
}

// NewImageCache creates a cache holding at most budget bytes of pixels.
func NewImageCache(budget int64, logger *slog.Logger) *ImageCache {
	if budget <= 0 {
		budget = DefaultImageBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &ImageCache{budget: budget, logger: logger}
	// Entry count is unbounded; eviction is driven by byte cost in Add.
	lru, err := simplelru.NewLRU[ImageKey, image.Image](math.MaxInt32, c.onEvict)
	if err != nil {
		panic(fmt.Sprintf("failed to create image LRU: %v", err))
	}
	c.lru = lru
	return c
}

func (c *ImageCache) onEvict(key ImageKey, img image.Image) {
	cost := imageCost(img)
	c.used -= cost
	c.logger.Debug("image cache eviction",
		slog.String("key", key.String()),
		slog.String("size", humanize.IBytes(uint64(cost))),
		slog.String("used", humanize.IBytes(uint64(c.used))),
	)
}

// Get returns the cached image for key and marks it recently used.
func (c *ImageCache) Get(key ImageKey) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Add stores img under key, evicting the least recently used entries until
// the cache fits its budget. Images larger than the whole budget are not
// cached.
func (c *ImageCache) Add(key ImageKey, img image.Image) bool {
	cost := imageCost(img)
	if cost > c.budget {
		c.logger.Debug("image too large to cache",
			slog.String("key", key.String()),
			slog.String("size", humanize.IBytes(uint64(cost))),
		)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(key); ok {
		c.used -= imageCost(old)
	}
	c.lru.Add(key, img)
	c.used += cost

	for c.used > c.budget {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
	return true
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Bytes returns the total cost of cached images.
func (c *ImageCache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Purge drops every cached image.
func (c *ImageCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
