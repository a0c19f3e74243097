package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AudioCache stores downloaded voice clips on disk, one file per source
// URL, named by the URL's last path segment. Files are never evicted.
type AudioCache struct {
	dir string
}

// NewAudioCache uses dir as the cache directory. It is created on first
// write.
func NewAudioCache(dir string) *AudioCache {
	return &AudioCache{dir: dir}
}

// Dir returns the cache directory.
func (c *AudioCache) Dir() string {
	return c.dir
}

// FileName is the last path segment of rawURL with any query or fragment
// removed.
func FileName(rawURL string) string {
	name, _, _ := strings.Cut(rawURL, "?")
	name, _, _ = strings.Cut(name, "#")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Path returns where rawURL is cached, or "" if the URL has no usable file
// name.
func (c *AudioCache) Path(rawURL string) string {
	name := FileName(rawURL)
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return filepath.Join(c.dir, name)
}

// Lookup returns the cached path for rawURL when a non-empty regular file
// exists there.
func (c *AudioCache) Lookup(rawURL string) (string, bool) {
	path := c.Path(rawURL)
	if path == "" {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return "", false
	}
	return path, true
}

// Store writes data for rawURL through a temporary file and renames it into
// place, so readers never see a partial clip.
func (c *AudioCache) Store(rawURL string, data []byte) (string, error) {
	path := c.Path(rawURL)
	if path == "" {
		return "", fmt.Errorf("no cache file name in %q", rawURL)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close audio: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to publish audio: %w", err)
	}
	return path, nil
}
