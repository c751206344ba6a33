// Package config persists the settings document: shortcuts, audio
// device, window geometry, user profile and API keys. The file is TOML
// under the platform config dir, written atomically.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/BurntSushi/toml"
)

const settingsFile = "settings.toml"

type Settings struct {
	Shortcuts   ShortcutConfig    `toml:"shortcuts" json:"shortcuts"`
	Audio       AudioConfig       `toml:"audio" json:"audio"`
	Window      WindowConfig      `toml:"window" json:"window"`
	UserProfile UserProfile       `toml:"user_profile" json:"user_profile"`
	APIKeys     map[string]string `toml:"api_keys" json:"api_keys"`
}

type ShortcutConfig struct {
	RecordKey      string `toml:"record_key" json:"record_key"`
	RecordModifier string `toml:"record_modifier" json:"record_modifier"`
}

type AudioConfig struct {
	DefaultDevice string `toml:"default_device" json:"default_device"`
}

type WindowConfig struct {
	Width  float64 `toml:"width" json:"width"`
	Height float64 `toml:"height" json:"height"`
}

type UserProfile struct {
	Name  string `toml:"name" json:"name"`
	Email string `toml:"email" json:"email"`
	About string `toml:"about" json:"about"`
}

func Default() Settings {
	return Settings{
		Shortcuts: ShortcutConfig{
			RecordKey:      "space",
			RecordModifier: "ctrl",
		},
		Window: WindowConfig{
			Width:  400,
			Height: 80,
		},
		APIKeys: map[string]string{},
	}
}

// DefaultPath returns the settings file location under the platform
// config dir.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "murmur", settingsFile), nil
}

// Store guards the settings document for concurrent readers (the
// bridge) and writers (mutation commands, the file watcher).
type Store struct {
	path string

	mu       sync.RWMutex
	settings Settings

	cbMu     sync.Mutex
	onChange []func(Settings)

	watchStop chan struct{}
	watchDone chan struct{}
}

// Open loads the settings file, creating it with defaults when absent.
func Open(path string) (*Store, error) {
	s := &Store{path: path, settings: Default()}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(string(data), &s.settings); err != nil {
			return nil, fmt.Errorf("parsing settings: %w", err)
		}
		if s.settings.APIKeys == nil {
			s.settings.APIKeys = map[string]string{}
		}
	case os.IsNotExist(err):
		if err := s.save(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.settings)
}

// Update applies fn to the document, persists it and notifies
// observers.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	fn(&s.settings)
	snapshot := cloneSettings(s.settings)
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snapshot)
	return nil
}

// OnChange registers an observer invoked after every mutation,
// including external file edits seen by Watch.
func (s *Store) OnChange(fn func(Settings)) {
	s.cbMu.Lock()
	s.onChange = append(s.onChange, fn)
	s.cbMu.Unlock()
}

func (s *Store) notify(snapshot Settings) {
	s.cbMu.Lock()
	cbs := append([]func(Settings){}, s.onChange...)
	s.cbMu.Unlock()
	for _, cb := range cbs {
		cb(snapshot)
	}
}

// save writes the document atomically: temp file then rename. Caller
// holds the write lock.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.settings); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}

// reload re-reads the file and reports whether the in-memory document
// changed. Used by the watcher so our own saves do not re-notify.
func (s *Store) reload() (Settings, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Settings{}, false, err
	}
	fresh := Default()
	if _, err := toml.Decode(string(data), &fresh); err != nil {
		return Settings{}, false, err
	}
	if fresh.APIKeys == nil {
		fresh.APIKeys = map[string]string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if reflect.DeepEqual(fresh, s.settings) {
		return Settings{}, false, nil
	}
	s.settings = fresh
	return cloneSettings(fresh), true, nil
}

func cloneSettings(in Settings) Settings {
	out := in
	out.APIKeys = make(map[string]string, len(in.APIKeys))
	for k, v := range in.APIKeys {
		out.APIKeys[k] = v
	}
	return out
}
