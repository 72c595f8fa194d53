// Package policy keeps the summary policy in sync with a YAML file on
// disk, reloading it when the file changes.
package policy

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/affectlab/moodtrace/pkg/stats"
)

// Provider holds the current summary policy and watches its backing file.
// It watches the parent directory since fsnotify cannot watch a file that
// does not exist yet.
type Provider struct {
	path       string
	parentPath string
	onChange   func(stats.Policy)
	watcher    *fsnotify.Watcher
	ctx        context.Context
	cancel     context.CancelFunc

	mu      sync.RWMutex
	current stats.Policy
	running bool

	debounce time.Duration
}

// New loads the initial policy from path and prepares the watcher. A
// missing file yields the defaults; a malformed one is an error. onChange
// is called after every successful reload.
func New(path string, onChange func(stats.Policy)) (*Provider, error) {
	initial, err := stats.LoadPolicy(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Provider{
		path:       path,
		parentPath: filepath.Dir(path),
		onChange:   onChange,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
		current:    initial,
		debounce:   100 * time.Millisecond,
	}, nil
}

// Current returns the policy as of the last successful load.
func (p *Provider) Current() stats.Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Start begins watching the policy file for changes.
func (p *Provider) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	if err := p.addWatch(); err != nil {
		log.Warn().Err(err).Str("path", p.parentPath).Msg("Failed to add initial policy watch")
		// Continue anyway - we'll try to re-establish later
	}

	go p.watchLoop()
	return nil
}

// Stop stops watching. The last loaded policy stays current.
func (p *Provider) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	p.running = false
	p.cancel()
	return p.watcher.Close()
}

// addWatch adds the parent directory to the watch list.
func (p *Provider) addWatch() error {
	if _, err := os.Stat(p.parentPath); os.IsNotExist(err) {
		return err
	}
	return p.watcher.Add(p.parentPath)
}

// watchLoop is the main event loop.
func (p *Provider) watchLoop() {
	var reloadTimer *time.Timer

	for {
		select {
		case <-p.ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}

			eventPath := filepath.Clean(event.Name)
			targetPath := filepath.Clean(p.path)

			// Parent directory recreated: re-establish the watch.
			if eventPath == p.parentPath && event.Op&fsnotify.Create != 0 {
				log.Info().Str("path", p.parentPath).Msg("Policy directory recreated, re-establishing watch")
				_ = p.addWatch()
				continue
			}

			if eventPath != targetPath {
				continue
			}

			// Editors fire bursts of events; reload once after they settle.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				reloadTimer = time.AfterFunc(p.debounce, p.reload)
			}

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Policy watcher error")
		}
	}
}

// reload re-reads the policy file. A removed file reverts to defaults; a
// malformed one keeps the previous policy.
func (p *Provider) reload() {
	loaded, err := stats.LoadPolicy(p.path)
	if err != nil {
		log.Warn().Err(err).Str("path", p.path).Msg("Ignoring invalid policy file")
		return
	}

	p.mu.Lock()
	p.current = loaded
	p.mu.Unlock()

	log.Info().
		Int("stable_max", loaded.StableMax).
		Int("mild_max", loaded.MildMax).
		Int("moderate_max", loaded.ModerateMax).
		Str("path", p.path).
		Msg("Policy reloaded")

	if p.onChange != nil {
		p.onChange(loaded)
	}
}
