package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domaincfg "esgss-backend/domain/config"
)

// Overrides is the shape of the optional runtime tuning file. Zero
// values mean "keep the compiled default".
type Overrides struct {
	OptimizationThreshold int `json:"optimizationThreshold"`
	PerformanceThreshold  int `json:"performanceThreshold"`
	EvolutionThreshold    int `json:"evolutionThreshold"`
	XPPerPurification     int `json:"xpPerPurification"`
	MaxMemoryEntries      int `json:"maxMemoryEntries"`
}

// DynamicConfig serves the domain rule set and hot-reloads overrides
// when the tuning file changes on disk
type DynamicConfig struct {
	mu       sync.RWMutex
	current  domaincfg.DomainConfig
	base     domaincfg.DomainConfig
	path     string
	watcher  *fsnotify.Watcher
	onChange []func(domaincfg.DomainConfig)
	logger   *zap.Logger
	done     chan struct{}
}

// NewDynamicConfig loads any existing overrides file and starts
// watching its directory. An empty path disables watching.
func NewDynamicConfig(path string, base domaincfg.DomainConfig, logger *zap.Logger) (*DynamicConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &DynamicConfig{
		current: base,
		base:    base,
		path:    path,
		logger:  logger,
		done:    make(chan struct{}),
	}
	if path == "" {
		return d, nil
	}

	d.reload()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: editors replace files on save
	// and a direct file watch dies with the old inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	d.watcher = watcher
	go d.loop()
	return d, nil
}

// Current returns the effective domain configuration
func (d *DynamicConfig) Current() domaincfg.DomainConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// OnChange registers a callback invoked after every successful reload
func (d *DynamicConfig) OnChange(fn func(domaincfg.DomainConfig)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = append(d.onChange, fn)
}

// Close stops the watcher
func (d *DynamicConfig) Close() error {
	close(d.done)
	if d.watcher != nil {
		return d.watcher.Close()
	}
	return nil
}

func (d *DynamicConfig) loop() {
	for {
		select {
		case <-d.done:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(d.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			d.reload()
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// reload applies the overrides file on top of the compiled defaults.
// A malformed file is logged and ignored, keeping the last good state.
func (d *DynamicConfig) reload() {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if !os.IsNotExist(err) {
			d.logger.Warn("cannot read config overrides", zap.String("path", d.path), zap.Error(err))
		}
		return
	}

	var o Overrides
	if err := json.Unmarshal(data, &o); err != nil {
		d.logger.Warn("malformed config overrides, keeping previous",
			zap.String("path", d.path), zap.Error(err))
		return
	}

	next := d.base
	if o.OptimizationThreshold > 0 {
		next.Evolution.OptimizationThreshold = o.OptimizationThreshold
	}
	if o.PerformanceThreshold > 0 {
		next.Evolution.PerformanceThreshold = o.PerformanceThreshold
	}
	if o.EvolutionThreshold > 0 {
		next.Evolution.EvolutionThreshold = o.EvolutionThreshold
	}
	if o.XPPerPurification > 0 {
		next.Purification.XPPerPurification = o.XPPerPurification
	}
	if o.MaxMemoryEntries > 0 {
		next.Limits.MaxMemoryEntries = o.MaxMemoryEntries
	}

	d.mu.Lock()
	d.current = next
	callbacks := make([]func(domaincfg.DomainConfig), len(d.onChange))
	copy(callbacks, d.onChange)
	d.mu.Unlock()

	d.logger.Info("domain config reloaded", zap.String("path", d.path))
	for _, fn := range callbacks {
		fn(next)
	}
}
