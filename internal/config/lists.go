package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"pubspy/internal/metrics"
	"pubspy/pkg/log"
)

const reloadDebounce = 100 * time.Millisecond

// Lists serves the exclusion list and the ads.txt allowlist, reloading them
// when the configuration file changes on disk.
type Lists struct {
	path       string
	mu         sync.RWMutex
	exclusions []string
	allowlist  []string

	metrics *metrics.Metrics
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	reloads chan struct{}
}

// NewLists returns Lists seeded from cfg. Call Watch to follow file changes.
func NewLists(cfg ListsConfig, m *metrics.Metrics) *Lists {
	return &Lists{
		exclusions: normalizeList(cfg.Exclusions),
		allowlist:  normalizeList(cfg.Allowlist),
		metrics:    m,
		cancel:     func() {},
		reloads:    make(chan struct{}, 1),
	}
}

// Exclusions returns the current exclusion list. Empty means use the built-in list.
func (l *Lists) Exclusions() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.exclusions...)
}

// Allowlist returns the current ads.txt allowlist. Empty means use the built-in list.
func (l *Lists) Allowlist() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.allowlist...)
}

// Reloaded signals after each successful reload. Sends are dropped when nobody reads.
func (l *Lists) Reloaded() <-chan struct{} {
	return l.reloads
}

// Watch follows path for changes until ctx is done or Close is called.
func (l *Lists) Watch(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// the directory is watched so editors that replace the file are seen
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.path = absPath
	l.watcher = watcher
	l.cancel = cancel
	l.mu.Unlock()

	go l.watchLoop(ctx, watcher)
	return nil
}

// Close stops watching.
func (l *Lists) Close() error {
	l.mu.Lock()
	cancel, watcher := l.cancel, l.watcher
	l.watcher = nil
	l.mu.Unlock()

	cancel()
	if watcher != nil {
		return watcher.Close()
	}
	return nil
}

func (l *Lists) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != l.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Chmod) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() {
					if ctx.Err() != nil {
						return
					}
					if err := l.reload(); err != nil {
						l.metrics.RecordConfigReload("error")
						log.GlobalWarn("config reload failed, keeping previous lists", "path", l.path, "error", err)
						return
					}
					l.metrics.RecordConfigReload("ok")
					log.GlobalInfo("config lists reloaded", "path", l.path)
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.GlobalWarn("config watcher error", "error", err)
		}
	}
}

// reload swaps in the lists from disk. A file that fails to parse leaves the
// current lists in place.
func (l *Lists) reload() error {
	// #nosec G304 -- path is chosen by the operator
	data, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}

	var file struct {
		Lists ListsConfig `yaml:"lists"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", l.path, err)
	}

	l.mu.Lock()
	l.exclusions = normalizeList(file.Lists.Exclusions)
	l.allowlist = normalizeList(file.Lists.Allowlist)
	l.mu.Unlock()

	select {
	case l.reloads <- struct{}{}:
	default:
	}
	return nil
}

func normalizeList(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
