package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Options configures the storage watcher.
type Options struct {
	// SettleDelay is how long the database files must stay quiet before the feed is read.
	SettleDelay time.Duration
	// PollInterval reads the feed periodically even without file events. Zero disables polling.
	PollInterval time.Duration
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 150 * time.Millisecond
	}
}

// isDatabaseFile reports whether path is the database file or one of its SQLite
// companions (-wal, -shm, -journal).
func isDatabaseFile(dbPath, path string) bool {
	base := filepath.Base(dbPath)
	name := filepath.Base(path)
	if name == base {
		return true
	}
	suffix, ok := strings.CutPrefix(name, base)
	if !ok {
		return false
	}
	switch suffix {
	case "-wal", "-shm", "-journal":
		return true
	default:
		return false
	}
}
