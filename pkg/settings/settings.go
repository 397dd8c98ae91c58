// Package settings manages persistent user settings for the newtgrade CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mitchellh/go-homedir"
)

// Default values used when a setting is unset.
const (
	DefaultStoreDir = "newtgrade-data"
	DefaultBackend  = "file"
)

// Settings holds persistent user preferences
type Settings struct {
	// Username is the device login used when -u is not specified
	Username string `json:"username,omitempty"`

	// StoreBackend selects the snapshot store: "file" or "redis"
	StoreBackend string `json:"store_backend,omitempty"`

	// StoreDir is the root of the file store and the audit log
	StoreDir string `json:"store_dir,omitempty"`

	// RedisAddr is the address of the redis store
	RedisAddr string `json:"redis_addr,omitempty"`

	// Inventory is the default device inventory file
	Inventory string `json:"inventory,omitempty"`

	// SettleInterval overrides the wait between port samples
	SettleInterval string `json:"settle_interval,omitempty"`

	// Parallelism bounds concurrent telemetry queries
	Parallelism int `json:"parallelism,omitempty"`

	// MaintenanceGroup overrides the BGP maintenance group name
	MaintenanceGroup string `json:"maintenance_group,omitempty"`

	// SkipVerify disables TLS certificate verification
	SkipVerify bool `json:"skip_verify,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return "newtgrade_settings.json"
	}
	return filepath.Join(home, ".newtgrade", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetStoreDir returns the store directory (with fallback), with ~ expanded
func (s *Settings) GetStoreDir() string {
	dir := s.StoreDir
	if dir == "" {
		dir = DefaultStoreDir
	}
	if expanded, err := homedir.Expand(dir); err == nil {
		return expanded
	}
	return dir
}

// GetStoreBackend returns the store backend (with fallback)
func (s *Settings) GetStoreBackend() string {
	if s.StoreBackend != "" {
		return s.StoreBackend
	}
	return DefaultBackend
}

// GetSettleInterval parses SettleInterval; zero means the prober default.
func (s *Settings) GetSettleInterval() (time.Duration, error) {
	if s.SettleInterval == "" {
		return 0, nil
	}
	return time.ParseDuration(s.SettleInterval)
}

// setters maps the key names accepted by Set to their field setters.
var setters = map[string]func(s *Settings, v string) error{
	"username": func(s *Settings, v string) error { s.Username = v; return nil },
	"store_backend": func(s *Settings, v string) error {
		if v != "" && v != "file" && v != "redis" {
			return fmt.Errorf("store_backend must be file or redis, got %q", v)
		}
		s.StoreBackend = v
		return nil
	},
	"store_dir":  func(s *Settings, v string) error { s.StoreDir = v; return nil },
	"redis_addr": func(s *Settings, v string) error { s.RedisAddr = v; return nil },
	"inventory":  func(s *Settings, v string) error { s.Inventory = v; return nil },
	"settle_interval": func(s *Settings, v string) error {
		if v != "" {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("settle_interval: %w", err)
			}
		}
		s.SettleInterval = v
		return nil
	},
	"parallelism": func(s *Settings, v string) error {
		if v == "" {
			s.Parallelism = 0
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("parallelism must be a positive integer, got %q", v)
		}
		s.Parallelism = n
		return nil
	},
	"maintenance_group": func(s *Settings, v string) error { s.MaintenanceGroup = v; return nil },
	"skip_verify": func(s *Settings, v string) error {
		if v == "" {
			s.SkipVerify = false
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("skip_verify: %w", err)
		}
		s.SkipVerify = b
		return nil
	},
}

// Keys lists the setting names accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one setting by name. An empty value clears it.
func (s *Settings) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	return set(s, value)
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
