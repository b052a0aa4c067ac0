package wifi

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/muurk/wifictl/internal/radio"
	"github.com/muurk/wifictl/internal/reconnect"
)

// AuthMode is the security scheme of a network.
type AuthMode int

const (
	AuthOpen AuthMode = iota
	AuthWEP
	AuthWPAPSK
	AuthWPA2PSK
	AuthWPAWPA2PSK
	AuthWPA2Enterprise
	AuthWPA3PSK
	AuthWPA2WPA3PSK
)

var authModeNames = []string{
	AuthOpen:           "OPEN",
	AuthWEP:            "WEP",
	AuthWPAPSK:         "WPA",
	AuthWPA2PSK:        "WPA2",
	AuthWPAWPA2PSK:     "WPA/WPA2",
	AuthWPA2Enterprise: "WPA2-Enterprise",
	AuthWPA3PSK:        "WPA3",
	AuthWPA2WPA3PSK:    "WPA2/WPA3",
}

// String returns the display name of the auth mode.
func (a AuthMode) String() string {
	if a >= 0 && int(a) < len(authModeNames) {
		return authModeNames[a]
	}
	return fmt.Sprintf("AuthMode(%d)", int(a))
}

// ParseAuthMode accepts the names produced by AuthMode.String, case-insensitively.
func ParseAuthMode(s string) (AuthMode, error) {
	for i, name := range authModeNames {
		if strings.EqualFold(name, s) {
			return AuthMode(i), nil
		}
	}
	return AuthOpen, fmt.Errorf("unknown auth mode %q", s)
}

// MarshalText encodes the auth mode by name.
func (a AuthMode) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an auth mode name.
func (a *AuthMode) UnmarshalText(text []byte) error {
	m, err := ParseAuthMode(string(text))
	if err != nil {
		return err
	}
	*a = m
	return nil
}

// ApRecord is one network seen during a scan.
type ApRecord struct {
	SSID     string   `json:"ssid"`
	BSSID    string   `json:"bssid,omitempty"`
	RSSI     int      `json:"rssi"`
	Channel  int      `json:"channel"`
	AuthMode AuthMode `json:"authmode"`
}

// StationConfig holds the credentials used to join a network.
type StationConfig struct {
	SSID     string   `json:"ssid"`
	Password string   `json:"password"`
	AuthMode AuthMode `json:"authmode"`
}

// AccessPointConfig describes the network the device advertises.
type AccessPointConfig struct {
	SSID           string   `json:"ssid"`
	Password       string   `json:"password"`
	AuthMode       AuthMode `json:"authmode"`
	Channel        int      `json:"channel"` // 0 lets the driver pick
	MaxConnections int      `json:"max_connections"`
	Hidden         bool     `json:"hidden"`
}

// IPInfo is a static IPv4 assignment.
type IPInfo struct {
	IP      netip.Addr `json:"ip"`
	Gateway netip.Addr `json:"gateway"`
	Netmask netip.Addr `json:"netmask"`
}

// Interface selects the station or access point network interface.
type Interface int

const (
	InterfaceStation Interface = iota
	InterfaceAccessPoint
)

// String returns the namespace name used by the store.
func (i Interface) String() string {
	if i == InterfaceAccessPoint {
		return "ap"
	}
	return "sta"
}

// StationState is the connection state of the station link.
type StationState int

const (
	StateDisconnected StationState = iota
	StateConnecting
	StateConnected
	// StateReconnectScheduled is reported, never stored: it is Disconnected
	// with a pending reconnect.
	StateReconnectScheduled
)

// String returns the state name.
func (s StationState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnectScheduled:
		return "reconnect_scheduled"
	default:
		return fmt.Sprintf("StationState(%d)", int(s))
	}
}

// Link holds the details of an established station connection.
type Link struct {
	SSID    string `json:"ssid"`
	IP      string `json:"ip"`
	Gateway string `json:"gateway"`
	Netmask string `json:"netmask"`
}

// Status is a point-in-time snapshot of the manager.
type Status struct {
	Mode             radio.Mode
	Station          StationState
	AutoReconnect    bool
	ReconnectPending bool
	LastReason       *reconnect.Reason
	Link             Link
	Scanning         bool
	// Internet is nil when no prober is configured.
	Internet *bool
}
