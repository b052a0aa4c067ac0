package config

import (
	"time"

	"github.com/muurk/wifictl/internal/connectivity"
	"github.com/muurk/wifictl/internal/portal"
	"github.com/muurk/wifictl/internal/provision"
	"github.com/muurk/wifictl/internal/wifi"
)

// CurrentVersion is the only config file version understood by this build.
const CurrentVersion = 1

// Platform names accepted in the platform field.
const (
	PlatformWPA = "wpa"
	PlatformSim = "sim"
)

// Config represents the entire daemon configuration file.
type Config struct {
	Version          int    `yaml:"version"`
	LogLevel         string `yaml:"log_level,omitempty"`          // debug, info, warn, error; empty disables logging
	Platform         string `yaml:"platform"`                     // wpa or sim
	Interface        string `yaml:"interface,omitempty"`          // Station interface (e.g. wlan0)
	APInterface      string `yaml:"ap_interface,omitempty"`       // Access point interface; empty disables AP on wpa
	StorePath        string `yaml:"store_path"`                   // bbolt database holding saved networks and flags
	Hostname         string `yaml:"hostname,omitempty"`           // Applied after an address is acquired
	Standalone       bool   `yaml:"standalone,omitempty"`         // Refuse station provisioning from the portal
	StartAccessPoint bool   `yaml:"start_access_point,omitempty"` // Bring up the access point even with a saved network

	AccessPoint   AccessPoint   `yaml:"access_point"`
	FallbackSSID  string        `yaml:"fallback_ssid"`
	Timeouts      Timeouts      `yaml:"timeouts"`
	InternetCheck InternetCheck `yaml:"internet_check"`
	Portal        Portal        `yaml:"portal"`
	Simulation    *Simulation   `yaml:"simulation,omitempty"`
}

// AccessPoint holds the provided access point credentials and radio settings.
// SSID and Password are the first candidate at boot; Channel, MaxConnections
// and Hidden apply to every access point the daemon starts.
type AccessPoint struct {
	SSID           string `yaml:"ssid,omitempty"`
	Password       string `yaml:"password,omitempty"`
	Channel        int    `yaml:"channel"` // 0 = auto
	MaxConnections int    `yaml:"max_connections"`
	Hidden         bool   `yaml:"hidden,omitempty"`
}

// Timeouts bound the connection manager's lock waits.
type Timeouts struct {
	Lock     time.Duration `yaml:"lock"`
	Teardown time.Duration `yaml:"teardown"`
}

// InternetCheck configures the reachability probe reported in status.
type InternetCheck struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Portal configures the WebSocket configuration portal.
type Portal struct {
	Listen            string  `yaml:"listen"`
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	Burst             int     `yaml:"burst"`
	Metrics           bool    `yaml:"metrics"` // Serve /metrics next to the portal
}

// Simulation lists the networks visible to the simulated platform.
type Simulation struct {
	Networks []Network `yaml:"networks"`
}

// Network is one simulated access point.
type Network struct {
	SSID     string        `yaml:"ssid"`
	Password string        `yaml:"password,omitempty"`
	RSSI     int           `yaml:"rssi"`
	Channel  int           `yaml:"channel"`
	Auth     wifi.AuthMode `yaml:"auth"`
}

// Default portal rate limit.
const (
	DefaultCommandsPerSecond = 5
	DefaultBurst             = 10
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Version:      CurrentVersion,
		LogLevel:     "info",
		Platform:     PlatformWPA,
		Interface:    "wlan0",
		StorePath:    "/var/lib/wifictl/wifictl.db",
		FallbackSSID: provision.DefaultFallbackSSID,
		AccessPoint: AccessPoint{
			MaxConnections: 4,
		},
		Timeouts: Timeouts{
			Lock:     time.Second,
			Teardown: 5 * time.Second,
		},
		InternetCheck: InternetCheck{
			URL:     connectivity.DefaultURL,
			Timeout: connectivity.DefaultTimeout,
		},
		Portal: Portal{
			Listen:            portal.DefaultListen,
			CommandsPerSecond: DefaultCommandsPerSecond,
			Burst:             DefaultBurst,
			Metrics:           true,
		},
	}
}

// Example returns the default configuration with a simulated network, used
// by init-config so a fresh install can be tried without hardware.
func Example() *Config {
	c := Default()
	c.Simulation = &Simulation{
		Networks: []Network{
			{SSID: "home", Password: "password1", RSSI: -48, Channel: 6, Auth: wifi.AuthWPA2PSK},
			{SSID: "cafe", RSSI: -71, Channel: 11, Auth: wifi.AuthOpen},
		},
	}
	return c
}
