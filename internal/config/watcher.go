package config

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// defaultPollInterval is how often the watcher re-checks the config file.
const defaultPollInterval = 5 * time.Second

// Watcher monitors the config file and invokes a callback when its content
// changes to a different, valid configuration. It polls rather than using
// inotify so it works on every platform the server runs on. Invalid edits
// are logged and ignored; the previous config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu        sync.Mutex
	current   *Config
	lastMtime time.Time
	lastHash  [sha256.Size]byte

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher creates a config file watcher. It loads the initial config
// immediately and starts polling in a background goroutine. onChange runs
// outside the watcher lock, so it may call [Watcher.Current].
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: defaultPollInterval,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the watcher goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check re-reads the file when its mtime moved, and swaps in the new config
// when the content hash differs and the content validates.
func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: stat failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.lastMtime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, err := w.load()
	if err != nil {
		slog.Warn("config watcher: ignoring invalid config change", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if cfg == nil {
		// Content hash matched the previous load; just remember the mtime.
		w.lastMtime = info.ModTime()
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.mu.Unlock()

	slog.Info("config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// load reads, hashes, parses, and validates the config file. It returns
// (nil, nil) when the content hash is unchanged since the last load.
func (w *Watcher) load() (*Config, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(data)

	info, err := os.Stat(w.path)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	same := hash == w.lastHash
	w.lastHash = hash
	w.lastMtime = info.ModTime()
	w.mu.Unlock()
	if same {
		return nil, nil
	}

	return LoadFromReader(strings.NewReader(os.ExpandEnv(string(data))))
}
