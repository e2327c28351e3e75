// Package ratecontrol loads per-model request rate limits from models.yaml
// and hands out shared token-bucket limiters for agent runtime calls.
package ratecontrol

import (
	"log"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type config struct {
	RateLimits struct {
		DefaultRPM     int `yaml:"default_rpm"`
		ModelOverrides map[string]struct {
			RPM int `yaml:"rpm"`
		} `yaml:"model_overrides"`
	} `yaml:"rate_limits"`
}

const fallbackRPM = 60

var (
	mu       sync.RWMutex
	loaded   *config
	limiters map[string]*rate.Limiter
)

var defaultPaths = []string{
	os.Getenv("MODELS_CONFIG_PATH"),
	"/app/config/models.yaml",
	"./config/models.yaml",
}

func loadLocked() {
	cfg := &config{}
	for _, p := range defaultPaths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var tmp config
		if err := yaml.Unmarshal(data, &tmp); err != nil {
			log.Printf("WARNING: failed to unmarshal rate limit config from %s: %v", p, err)
			continue
		}
		cfg = &tmp
		break
	}
	loaded = cfg
	// Limiters built from the previous config are stale now.
	limiters = make(map[string]*rate.Limiter)
}

// Reload re-reads models.yaml and resets all limiters.
func Reload() {
	mu.Lock()
	defer mu.Unlock()
	loadLocked()
}

// Watch starts an fsnotify watcher on the given models.yaml path so rate
// limits follow config edits without a restart.
func Watch(path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					Reload()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// RPMFor returns the configured requests-per-minute for a model.
func RPMFor(model string) int {
	ensureLoaded()
	mu.RLock()
	defer mu.RUnlock()

	if ov, ok := loaded.RateLimits.ModelOverrides[model]; ok && ov.RPM > 0 {
		return ov.RPM
	}
	if loaded.RateLimits.DefaultRPM > 0 {
		return loaded.RateLimits.DefaultRPM
	}
	return fallbackRPM
}

// Limiter returns the shared limiter for a model, creating it on first use.
func Limiter(model string) *rate.Limiter {
	ensureLoaded()

	mu.RLock()
	if l, ok := limiters[model]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	rpm := RPMFor(model)

	mu.Lock()
	defer mu.Unlock()
	if l, ok := limiters[model]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	limiters[model] = l
	return l
}

func ensureLoaded() {
	mu.RLock()
	ok := loaded != nil
	mu.RUnlock()
	if ok {
		return
	}
	mu.Lock()
	if loaded == nil {
		loadLocked()
	}
	mu.Unlock()
}
