package watcher

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// defaultIgnore matches partial downloads and OS clutter.
var defaultIgnore = []string{".DS_Store", "Thumbs.db", "*.tmp", "*.part", "*.crdownload"}

// Options configures the watcher.
type Options struct {
	// Extensions limits settled announcements to these lowercase
	// extensions, dot included. Empty announces every file.
	Extensions []string

	// IgnorePatterns are filepath.Match patterns on the base name. nil uses
	// defaultIgnore and also skips hidden paths.
	IgnorePatterns []string
	IgnoreHidden   bool

	// SettleDelay is how long size and mtime must stay unchanged.
	SettleDelay time.Duration

	// MinSize skips settled files smaller than this many bytes, such as
	// the empty placeholder some scanners create before writing.
	MinSize int64
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = defaultIgnore
		o.IgnoreHidden = true
	}
}

// shouldIgnore reports whether events for path are dropped outright.
func (o *Options) shouldIgnore(path string) bool {
	if o.IgnoreHidden && hidden(path) {
		return true
	}
	base := filepath.Base(path)
	return slices.ContainsFunc(o.IgnorePatterns, func(pattern string) bool {
		ok, err := filepath.Match(pattern, base)
		return err == nil && ok
	})
}

// accepts reports whether a settled file of the given size is announced.
func (o *Options) accepts(path string, size int64) bool {
	if size < o.MinSize {
		return false
	}
	return len(o.Extensions) == 0 || slices.Contains(o.Extensions, strings.ToLower(filepath.Ext(path)))
}

func hidden(path string) bool {
	for part := range strings.SplitSeq(filepath.Clean(path), string(filepath.Separator)) {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
