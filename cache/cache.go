package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const fileSuffix = ".cache"

// FileCache stores rendered page exports on disk, one directory per page.
// Entries are keyed by page, format and page version, so an edit to the page
// naturally misses the old entry.
type FileCache struct {
	root   string
	maxAge time.Duration
}

func New(root string, maxAge time.Duration) *FileCache {
	return &FileCache{root: root, maxAge: maxAge}
}

// Path returns the cache file path for one rendering of a page
func (c *FileCache) Path(pageID, format, version string) string {
	hash := generateHash(pageID + format + version)
	return filepath.Join(c.pageDir(pageID), fmt.Sprintf("%s_%s%s", format, hash[:16], fileSuffix))
}

func (c *FileCache) pageDir(pageID string) string {
	// ids are uuids, but never let one escape the cache root
	name := filepath.Base(filepath.Clean("/" + pageID))
	if name == string(filepath.Separator) {
		name = "_"
	}
	return filepath.Join(c.root, name)
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// Read returns the cached rendering if it exists and is younger than maxAge.
func (c *FileCache) Read(pageID, format, version string) ([]byte, bool) {
	path := c.Path(pageID, format, version)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if c.maxAge > 0 && time.Since(info.ModTime()) > c.maxAge {
		return nil, false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return content, true
}

// Write stores a rendering and drops older versions of the same format.
func (c *FileCache) Write(pageID, format, version string, data []byte) error {
	dir := c.pageDir(pageID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	matches, _ := filepath.Glob(filepath.Join(dir, format+"_*"+fileSuffix))
	for _, match := range matches {
		os.Remove(match)
	}

	return os.WriteFile(c.Path(pageID, format, version), data, 0644)
}

// ClearPage removes every cached rendering of a page
func (c *FileCache) ClearPage(pageID string) error {
	return os.RemoveAll(c.pageDir(pageID))
}

// ClearOld removes cache files older than maxAge and returns how many went.
func (c *FileCache) ClearOld() (int, error) {
	removed := 0
	err := filepath.Walk(c.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if info.IsDir() || !strings.HasSuffix(path, fileSuffix) {
			return nil
		}

		if time.Since(info.ModTime()) > c.maxAge {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
