// Package config loads nabd's YAML configuration file and, optionally,
// watches it for changes. Schema validation follows maestro's
// internal/quality.Loader ("schema_version is required, must match a
// supported value"); the fsnotify watch is new, feeding a reload into
// the scheduler as a native config-update work item (spec §2.2).
package config

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const supportedSchemaVersion = "1.0.0"

// Config is nabd's on-disk configuration.
type Config struct {
	SchemaVersion   string            `yaml:"schema_version"`
	ListenAddr      string            `yaml:"listen_addr"`
	ResourcePaths   []string          `yaml:"resource_paths"`
	DefaultLocale   string            `yaml:"default_locale"`
	KnownApps       []string          `yaml:"known_apps"`
	MDNSEnabled     bool              `yaml:"mdns_enabled"`
	HardwareBackend string            `yaml:"hardware_backend"` // "real" or "virtual"
	RFIDPictures    map[string]string `yaml:"rfid_pictures"`
	IdleStatePath   string            `yaml:"idle_state_path"`
	QueueDepth      int               `yaml:"queue_depth"`
}

func defaults() Config {
	return Config{
		ListenAddr:      "127.0.0.1:10543",
		DefaultLocale:   "en",
		HardwareBackend: "virtual",
		QueueDepth:      1000,
	}
}

// Load reads and validates the file at path, filling in defaults for any
// field the file leaves out that has one. A value written in the file,
// even an empty one, replaces the default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.SchemaVersion == "" {
		return fmt.Errorf("schema_version is required")
	}
	if cfg.SchemaVersion != supportedSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s", cfg.SchemaVersion)
	}
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	switch cfg.HardwareBackend {
	case "real", "virtual":
	default:
		return fmt.Errorf("hardware_backend must be \"real\" or \"virtual\", got %q", cfg.HardwareBackend)
	}
	return nil
}

// Notifier is the Apply surface a config reloader offers: the same shape
// as scheduler.ConfigApplier, through which a remote config-update packet
// re-reads the file. *Watcher has this method.
type Notifier interface {
	Apply(service, slot string) (locale string, err error)
}

// Watcher reloads path on fsnotify write events and reports each
// successful reload to the onChange callback given to Watch, using a
// dedicated goroutine per external event source rather than polling.
type Watcher struct {
	path   string
	log    *zap.Logger
	mu     sync.Mutex
	latest Config
}

func NewWatcher(path string, initial Config, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{path: path, latest: initial, log: log}
}

func (w *Watcher) Current() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest
}

// Apply implements scheduler.ConfigApplier: re-read the file and report
// the locale it now holds (spec §2.2: config-update carries no value,
// only a pointer to re-read the already-updated file).
func (w *Watcher) Apply(service, slot string) (string, error) {
	cfg, err := Load(w.path)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	w.latest = cfg
	w.mu.Unlock()
	return cfg.DefaultLocale, nil
}

// Watch blocks, reloading on every write/create event until ctx is
// canceled. onChange is called after each successful reload so the
// caller can decide how to propagate it (cmd/nabd submits a native
// config-update work item).
func (w *Watcher) Watch(ctx context.Context, onChange func(Config)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if _, err := w.Apply("nabd", ""); err != nil {
				w.log.Warn("config reload failed", zap.Error(err))
				continue
			}
			if onChange != nil {
				onChange(w.Current())
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", zap.Error(err))
		}
	}
}
