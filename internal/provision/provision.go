// Package provision decides at startup whether the device joins its saved
// network or brings up an access point for configuration.
package provision

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/store"
	"github.com/muurk/wifictl/internal/wifi"
)

// DefaultFallbackSSID is the open network started when no access point
// credentials are supplied or saved.
const DefaultFallbackSSID = "CaptivePortal"

// ErrNoAccessPoint is returned when every access point candidate failed.
var ErrNoAccessPoint = errors.New("provision: failed to start any access point")

// Radio is the part of the connection manager used at boot.
type Radio interface {
	StartAccessPoint(ssid, password string) error
	ConnectStation(cfg *wifi.StationConfig, autoReconnect bool) error
}

// FlagStore reads one-shot flags.
type FlagStore interface {
	ConsumeFlag(name string) (bool, error)
}

// Store is the persisted configuration consulted at boot.
type Store interface {
	FlagStore
	LoadStationConfig() (*wifi.StationConfig, error)
	DeleteStationConfig() error
	LoadAccessPointConfig() (*wifi.AccessPointConfig, error)
}

// Options configures the boot flow.
type Options struct {
	// SSID and Password are tried first when an access point is needed.
	SSID     string
	Password string
	// StartAccessPoint forces the access point even if a station config
	// is saved.
	StartAccessPoint bool
	FallbackSSID     string
	Logger           *zap.Logger
}

// Path identifies how the device came up.
type Path int

const (
	PathNone Path = iota
	PathStation
	PathAccessPointProvided
	PathAccessPointSaved
	PathAccessPointFallback
)

// String returns the path name used in logs.
func (p Path) String() string {
	switch p {
	case PathStation:
		return "station"
	case PathAccessPointProvided:
		return "access_point_provided"
	case PathAccessPointSaved:
		return "access_point_saved"
	case PathAccessPointFallback:
		return "access_point_fallback"
	default:
		return "none"
	}
}

// AccessPoint reports whether the path started an access point.
func (p Path) AccessPoint() bool {
	return p >= PathAccessPointProvided
}

// Result describes the outcome of Start.
type Result struct {
	Path Path
	// SSID is the network joined or advertised.
	SSID string
	// Reboot is set when the reboot flag forced the access point.
	Reboot bool
	// StationFailed is set when a saved station config was rejected and
	// deleted.
	StationFailed bool
}

// Start runs the boot flow. The reboot flag, once consumed, forces the
// access point. Otherwise a saved station config is used; when none exists
// or the connection cannot be initiated, the config is deleted and the
// access point chain runs: provided credentials, saved access point, then
// the open fallback network.
func Start(r Radio, s Store, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Named("provision")
	}
	if opts.FallbackSSID == "" {
		opts.FallbackSSID = DefaultFallbackSSID
	}

	var res Result
	apRequired := opts.StartAccessPoint

	reboot, err := s.ConsumeFlag(store.FlagReboot)
	if err != nil {
		log.Warn("Failed to read reboot flag", zap.Error(err))
	}
	if reboot {
		log.Info("Reboot flag set, access point required")
		res.Reboot = true
		apRequired = true
	}

	if !apRequired {
		cfg, err := s.LoadStationConfig()
		switch {
		case err == nil:
			log.Info("Station configuration loaded", zap.String("ssid", cfg.SSID))
			err = r.ConnectStation(cfg, true)
			if err == nil {
				res.Path = PathStation
				res.SSID = cfg.SSID
				log.Info("Started station connection", zap.String("ssid", cfg.SSID))
				return res, nil
			}
			log.Warn("Failed to start station connection, deleting config",
				zap.String("ssid", cfg.SSID),
				zap.Error(err),
			)
			res.StationFailed = true
			if err := s.DeleteStationConfig(); err != nil {
				log.Error("Failed to delete station config", zap.Error(err))
			}
		case errors.Is(err, wifi.ErrConfigNotFound):
			log.Info("No station configuration found")
		default:
			log.Error("Failed to load station config", zap.Error(err))
		}
	}

	return startAccessPoint(r, s, opts, res, log)
}

func startAccessPoint(r Radio, s Store, opts Options, res Result, log *zap.Logger) (Result, error) {
	if opts.SSID != "" {
		log.Info("Starting access point with provided SSID", zap.String("ssid", opts.SSID))
		err := r.StartAccessPoint(opts.SSID, opts.Password)
		if err == nil {
			res.Path, res.SSID = PathAccessPointProvided, opts.SSID
			return res, nil
		}
		log.Warn("Failed to start access point with provided SSID", zap.Error(err))
	}

	saved, err := s.LoadAccessPointConfig()
	switch {
	case err == nil && saved.SSID != "":
		log.Info("Starting access point with saved config", zap.String("ssid", saved.SSID))
		err = r.StartAccessPoint(saved.SSID, saved.Password)
		if err == nil {
			res.Path, res.SSID = PathAccessPointSaved, saved.SSID
			return res, nil
		}
		log.Warn("Failed to start access point with saved config", zap.Error(err))
	case err != nil && !errors.Is(err, wifi.ErrConfigNotFound):
		log.Error("Failed to load access point config", zap.Error(err))
	}

	log.Info("Starting fallback access point", zap.String("ssid", opts.FallbackSSID))
	if err := r.StartAccessPoint(opts.FallbackSSID, ""); err != nil {
		log.Error("Failed to start fallback access point", zap.Error(err))
		return res, fmt.Errorf("%w: %v", ErrNoAccessPoint, err)
	}
	res.Path, res.SSID = PathAccessPointFallback, opts.FallbackSSID
	return res, nil
}
