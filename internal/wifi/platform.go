package wifi

import (
	"context"

	"github.com/muurk/wifictl/internal/radio"
	"github.com/muurk/wifictl/internal/reconnect"
)

// Platform is the radio driver capability the Manager drives. Calls may
// block on hardware; asynchronous outcomes are delivered on Events.
//
// Implementations must not deliver events synchronously from inside a
// method call: the Manager may hold its state lock while calling in.
type Platform interface {
	SetMode(mode radio.Mode) error
	ConfigureAccessPoint(cfg AccessPointConfig) error
	ConfigureStation(cfg StationConfig) error
	// ConfigureIP applies a static address to the station interface, or
	// enables DHCP when info is nil.
	ConfigureIP(info *IPInfo) error
	Start() error
	Stop() error
	Connect() error
	Disconnect() error
	// DeauthStations disconnects every client attached to the access point.
	DeauthStations() error
	Scan() error
	Events() <-chan PlatformEvent
}

// PlatformEvent is a notification from the radio driver.
type PlatformEvent interface {
	platformEvent()
}

// LinkUp reports that the station associated with an AP but has no address yet.
type LinkUp struct {
	SSID string
}

// IPAcquired reports that the station obtained an address.
type IPAcquired struct {
	SSID    string
	IP      string
	Gateway string
	Netmask string
}

// LinkDown reports that the station link dropped.
type LinkDown struct {
	Reason reconnect.Reason
}

// ScanDone reports the end of a scan. Records is empty when OK is false.
type ScanDone struct {
	OK      bool
	Records []ApRecord
}

func (LinkUp) platformEvent()     {}
func (IPAcquired) platformEvent() {}
func (LinkDown) platformEvent()   {}
func (ScanDone) platformEvent()   {}

// Store persists station, access point and addressing configuration.
// Loads return an error wrapping ErrConfigNotFound when nothing is stored.
type Store interface {
	LoadStationConfig() (*StationConfig, error)
	SaveStationConfig(cfg StationConfig) error
	DeleteStationConfig() error
	LoadAccessPointConfig() (*AccessPointConfig, error)
	SaveAccessPointConfig(cfg AccessPointConfig) error
	DeleteAccessPointConfig() error
	LoadIPInfo(iface Interface) (*IPInfo, error)
	SaveIPInfo(iface Interface, info IPInfo) error
	DeleteIPInfo(iface Interface) error
	LoadHostname() (string, error)
}

// HostnameSetter assigns the device hostname on an interface.
type HostnameSetter interface {
	SetHostname(iface Interface, name string) error
}

// ReachabilityProber reports whether the internet is reachable.
type ReachabilityProber interface {
	CheckInternet(ctx context.Context) bool
}
