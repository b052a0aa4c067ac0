package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/config"
	"github.com/muurk/wifictl/internal/connectivity"
	"github.com/muurk/wifictl/internal/discovery"
	"github.com/muurk/wifictl/internal/metrics"
	"github.com/muurk/wifictl/internal/portal"
	"github.com/muurk/wifictl/internal/provision"
	"github.com/muurk/wifictl/internal/store"
	"github.com/muurk/wifictl/internal/version"
	"github.com/muurk/wifictl/internal/wifi"
)

// errRestart ends run after the portal scheduled a reboot or reset.
var errRestart = errors.New("restart requested")

// restartDelay leaves time for the portal response to reach the client.
const restartDelay = time.Second

// daemon owns every component of a running wifid.
type daemon struct {
	cfg *config.Config
	log *zap.Logger

	store      *store.Store
	platform   config.Platform
	advertiser *discovery.Advertiser
	manager    *wifi.Manager
	recorder   *metrics.Recorder
	portal     *portal.Server

	restartDelay time.Duration
	restart      chan struct{}
	restartOnce  sync.Once
}

func newDaemon(cfg *config.Config, log *zap.Logger) (*daemon, error) {
	d := &daemon{
		cfg:          cfg,
		log:          log,
		restartDelay: restartDelay,
		restart:      make(chan struct{}),
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	d.store = st
	if err := d.seedStore(); err != nil {
		_ = st.Close()
		return nil, err
	}

	p, err := cfg.OpenPlatform(log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	d.platform = p

	d.advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{
		Port:    listenPort(cfg.Portal.Listen),
		Path:    portal.DefaultPath,
		Version: version.Version,
		Interfaces: map[wifi.Interface]string{
			wifi.InterfaceStation:     cfg.Interface,
			wifi.InterfaceAccessPoint: cfg.APInterface,
		},
		Logger: log.Named("discovery"),
	})

	prober := connectivity.NewProber(cfg.InternetCheck.URL, cfg.InternetCheck.Timeout)
	prober.Logger = log.Named("connectivity")

	d.manager, err = wifi.New(wifi.Config{
		Platform:         p,
		Store:            st,
		Hostname:         d.advertiser,
		Prober:           prober,
		Logger:           log.Named("wifi"),
		LockTimeout:      cfg.Timeouts.Lock,
		TeardownTimeout:  cfg.Timeouts.Teardown,
		APChannel:        cfg.AccessPoint.Channel,
		APMaxConnections: cfg.AccessPoint.MaxConnections,
		APHidden:         cfg.AccessPoint.Hidden,
	})
	if err != nil {
		d.close()
		return nil, err
	}

	if cfg.Portal.Metrics {
		d.recorder = metrics.New()
	}
	d.portal, err = portal.New(portal.Config{
		Listen:            cfg.Portal.Listen,
		CommandsPerSecond: cfg.Portal.CommandsPerSecond,
		Burst:             cfg.Portal.Burst,
		Version:           version.Version,
		Controller:        d.manager,
		Settings:          st,
		Recorder:          d.recorder,
		Restart:           d.requestRestart,
		Logger:            log.Named("portal"),
	})
	if err != nil {
		d.close()
		return nil, err
	}

	// Metrics are updated before clients hear about the event.
	var observers []wifi.Observer
	if d.recorder != nil {
		observers = append(observers, d.recorder.Observe)
	}
	observers = append(observers, d.portal.Hub().Observe)
	d.manager.Subscribe(wifi.Observers(observers...))
	return d, nil
}

// seedStore copies the hostname and standalone settings of the config file
// into the store the manager and portal read them from.
func (d *daemon) seedStore() error {
	if d.cfg.Hostname != "" {
		if err := discovery.ValidateHostname(d.cfg.Hostname); err != nil {
			return err
		}
		if err := d.store.SaveHostname(d.cfg.Hostname); err != nil {
			return fmt.Errorf("failed to save hostname: %w", err)
		}
	}
	if d.cfg.Standalone {
		if err := d.store.SetFlag(store.FlagStandalone, true); err != nil {
			return fmt.Errorf("failed to set standalone flag: %w", err)
		}
	}
	return nil
}

// requestRestart is the portal's reboot hook. The restart happens after a
// delay so the "_scheduled" response is written first.
func (d *daemon) requestRestart() {
	d.log.Info("Restart requested", zap.Duration("delay", d.restartDelay))
	time.AfterFunc(d.restartDelay, func() {
		d.restartOnce.Do(func() { close(d.restart) })
	})
}

// run provisions the radio and serves the portal until ctx is cancelled,
// a restart is requested, or a component fails.
func (d *daemon) run(ctx context.Context) error {
	defer d.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("connection manager stopped: %w", err)
		}
	}()

	res, err := provision.Start(d.manager, d.store, provision.Options{
		SSID:             d.cfg.AccessPoint.SSID,
		Password:         d.cfg.AccessPoint.Password,
		StartAccessPoint: d.cfg.StartAccessPoint,
		FallbackSSID:     d.cfg.FallbackSSID,
		Logger:           d.log.Named("provision"),
	})
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}
	d.log.Info("Provisioning complete",
		zap.Stringer("path", res.Path),
		zap.String("ssid", res.SSID),
		zap.Bool("reboot", res.Reboot),
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.portal.Start(ctx); err != nil {
			errCh <- fmt.Errorf("portal stopped: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		d.log.Info("Shutting down")
	case <-d.restart:
		d.log.Info("Restarting")
		runErr = errRestart
	case runErr = <-errCh:
		d.log.Error("Component failed", zap.Error(runErr))
	}
	cancel()
	wg.Wait()
	return runErr
}

func (d *daemon) close() {
	if d.manager != nil {
		if err := d.manager.Close(); err != nil {
			d.log.Warn("Failed to close connection manager", zap.Error(err))
		}
	}
	if d.advertiser != nil {
		d.advertiser.Close()
	}
	if d.platform != nil {
		if err := d.platform.Close(); err != nil {
			d.log.Warn("Failed to close platform", zap.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.Warn("Failed to close store", zap.Error(err))
		}
	}
}

// listenPort extracts the port the portal is advertised on.
func listenPort(listen string) int {
	_, port, err := net.SplitHostPort(listen)
	if err != nil {
		return discovery.DefaultPort
	}
	n, err := strconv.Atoi(port)
	if err != nil || n == 0 {
		return discovery.DefaultPort
	}
	return n
}
