package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/sim"
	"github.com/muurk/wifictl/internal/wifi"
	"github.com/muurk/wifictl/internal/wpa"
)

// Platform is a radio driver that holds resources until Close.
type Platform interface {
	wifi.Platform
	Close() error
}

// SimNetworks converts the simulation section into simulated networks.
func (c *Config) SimNetworks() []sim.Network {
	if c.Simulation == nil {
		return nil
	}
	networks := make([]sim.Network, 0, len(c.Simulation.Networks))
	for _, n := range c.Simulation.Networks {
		networks = append(networks, sim.Network{
			SSID:     n.SSID,
			Password: n.Password,
			RSSI:     n.RSSI,
			Channel:  n.Channel,
			AuthMode: n.Auth,
		})
	}
	return networks
}

// OpenPlatform opens the radio driver selected by the platform field.
func (c *Config) OpenPlatform(log *zap.Logger) (Platform, error) {
	switch c.Platform {
	case PlatformSim:
		return sim.New(sim.Config{
			Networks: c.SimNetworks(),
			Logger:   log.Named("sim"),
		}), nil
	case PlatformWPA:
		p, err := wpa.Open(wpa.Config{
			Interface:   c.Interface,
			APInterface: c.APInterface,
			Logger:      log.Named("wpa"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to attach to wpa_supplicant: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", c.Platform)
	}
}
