package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/wifi"
)

const (
	appName    = "wifictl"
	configFile = "wifid.yaml"
)

var (
	// Global config instance (loaded lazily)
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigErr  error
	globalPath       string

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// GetConfigDir returns the configuration directory:
// $XDG_CONFIG_HOME/wifictl or $HOME/.config/wifictl.
func GetConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// DefaultPath returns the full path to the default configuration file.
func DefaultPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration at path. Fields missing from the file keep
// their defaults. If the file doesn't exist, the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path.
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	// Passwords are stored, so keep the directory and file user-only
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# wifid configuration file
# Saved station credentials live in the store at store_path, not here.
# The access point password below is readable by anyone who can read
# this file.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	logging.Debug("Config saved")
	return nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	switch c.Platform {
	case PlatformWPA:
		if c.Interface == "" {
			return errors.New("interface is required for the wpa platform")
		}
	case PlatformSim:
	default:
		return fmt.Errorf("unknown platform %q (expected %s or %s)", c.Platform, PlatformWPA, PlatformSim)
	}
	if c.StorePath == "" {
		return errors.New("store_path is required")
	}
	if c.FallbackSSID == "" || len(c.FallbackSSID) > wifi.MaxSSIDLength {
		return fmt.Errorf("fallback_ssid must be 1-%d bytes", wifi.MaxSSIDLength)
	}
	// Long SSIDs are truncated and short passwords open the network at
	// start time, so only the hard password limit is checked here.
	if len(c.AccessPoint.Password) > wifi.MaxPasswordLength {
		return fmt.Errorf("access_point.password must be %d bytes or less", wifi.MaxPasswordLength)
	}
	if c.AccessPoint.Channel < 0 || c.AccessPoint.Channel > 14 {
		return fmt.Errorf("access_point.channel must be 0-14, got %d", c.AccessPoint.Channel)
	}
	if c.AccessPoint.MaxConnections < 0 {
		return errors.New("access_point.max_connections must not be negative")
	}
	if c.Timeouts.Lock < 0 || c.Timeouts.Teardown < 0 || c.InternetCheck.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.Portal.CommandsPerSecond < 0 || c.Portal.Burst < 0 {
		return errors.New("portal rate limit must not be negative")
	}
	if c.Portal.CommandsPerSecond > 0 && c.Portal.Burst == 0 {
		return errors.New("portal.burst must be positive when commands_per_second is set")
	}
	if c.Simulation != nil {
		for i, n := range c.Simulation.Networks {
			if err := wifi.ValidateSSID(n.SSID); err != nil {
				return fmt.Errorf("simulation.networks[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// SetPath selects the file Get loads. It must be called before the first Get.
func SetPath(path string) {
	globalPath = path
}

// Get loads the global configuration once, from the path given to SetPath
// or the default path.
// Thread-safe - multiple calls will return the same instance.
func Get() (*Config, error) {
	globalConfigOnce.Do(func() {
		path := globalPath
		if path == "" {
			path, globalConfigErr = DefaultPath()
			if globalConfigErr != nil {
				return
			}
		}
		globalConfig, globalConfigErr = Load(path)
	})
	return globalConfig, globalConfigErr
}
