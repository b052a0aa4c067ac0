package provision

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/muurk/wifictl/internal/store"
	"github.com/muurk/wifictl/internal/wifi"
)

type fakeRadio struct {
	connectErr error
	// failAP lists SSIDs whose access point fails to start.
	failAP    map[string]bool
	connected []string
	started   []string
}

func (f *fakeRadio) StartAccessPoint(ssid, password string) error {
	f.started = append(f.started, ssid)
	if f.failAP[ssid] {
		return errors.New("radio failure")
	}
	return nil
}

func (f *fakeRadio) ConnectStation(cfg *wifi.StationConfig, autoReconnect bool) error {
	f.connected = append(f.connected, cfg.SSID)
	return f.connectErr
}

type fakeStore struct {
	reboot   bool
	flagErr  error
	station  *wifi.StationConfig
	ap       *wifi.AccessPointConfig
	deleted  bool
	consumed []string
}

func (f *fakeStore) ConsumeFlag(name string) (bool, error) {
	f.consumed = append(f.consumed, name)
	if f.flagErr != nil {
		return false, f.flagErr
	}
	v := f.reboot
	f.reboot = false
	return v, nil
}

func (f *fakeStore) LoadStationConfig() (*wifi.StationConfig, error) {
	if f.station == nil {
		return nil, wifi.ErrConfigNotFound
	}
	return f.station, nil
}

func (f *fakeStore) DeleteStationConfig() error {
	f.deleted = true
	f.station = nil
	return nil
}

func (f *fakeStore) LoadAccessPointConfig() (*wifi.AccessPointConfig, error) {
	if f.ap == nil {
		return nil, wifi.ErrConfigNotFound
	}
	return f.ap, nil
}

func TestStart(t *testing.T) {
	home := &wifi.StationConfig{SSID: "home", Password: "password1", AuthMode: wifi.AuthWPA2PSK}
	saved := &wifi.AccessPointConfig{SSID: "SavedAP", Password: "savedpass"}

	tests := []struct {
		name        string
		store       *fakeStore
		radio       *fakeRadio
		opts        Options
		wantPath    Path
		wantSSID    string
		wantStarted []string
		wantDeleted bool
		wantReboot  bool
	}{
		{
			name:     "saved station",
			store:    &fakeStore{station: home, ap: saved},
			radio:    &fakeRadio{},
			opts:     Options{SSID: "Given"},
			wantPath: PathStation,
			wantSSID: "home",
		},
		{
			name:        "reboot flag forces access point",
			store:       &fakeStore{reboot: true, station: home},
			radio:       &fakeRadio{},
			opts:        Options{SSID: "Given", Password: "givenpass"},
			wantPath:    PathAccessPointProvided,
			wantSSID:    "Given",
			wantStarted: []string{"Given"},
			wantReboot:  true,
		},
		{
			name:        "start_access_point option forces access point",
			store:       &fakeStore{station: home, ap: saved},
			radio:       &fakeRadio{},
			opts:        Options{StartAccessPoint: true},
			wantPath:    PathAccessPointSaved,
			wantSSID:    "SavedAP",
			wantStarted: []string{"SavedAP"},
		},
		{
			name:        "no station config falls back to saved access point",
			store:       &fakeStore{ap: saved},
			radio:       &fakeRadio{},
			wantPath:    PathAccessPointSaved,
			wantSSID:    "SavedAP",
			wantStarted: []string{"SavedAP"},
		},
		{
			name:        "station failure deletes config",
			store:       &fakeStore{station: home},
			radio:       &fakeRadio{connectErr: wifi.NewArgumentError("connect_station", "bad config")},
			wantPath:    PathAccessPointFallback,
			wantSSID:    DefaultFallbackSSID,
			wantStarted: []string{DefaultFallbackSSID},
			wantDeleted: true,
		},
		{
			name:        "provided access point failure tries saved",
			store:       &fakeStore{reboot: true, ap: saved},
			radio:       &fakeRadio{failAP: map[string]bool{"Given": true}},
			opts:        Options{SSID: "Given"},
			wantPath:    PathAccessPointSaved,
			wantSSID:    "SavedAP",
			wantStarted: []string{"Given", "SavedAP"},
			wantReboot:  true,
		},
		{
			name:        "every candidate before fallback fails",
			store:       &fakeStore{ap: saved},
			radio:       &fakeRadio{failAP: map[string]bool{"Given": true, "SavedAP": true}},
			opts:        Options{SSID: "Given", FallbackSSID: "Setup"},
			wantPath:    PathAccessPointFallback,
			wantSSID:    "Setup",
			wantStarted: []string{"Given", "SavedAP", "Setup"},
		},
		{
			name:        "flag read error is not fatal",
			store:       &fakeStore{flagErr: errors.New("io"), station: home},
			radio:       &fakeRadio{},
			wantPath:    PathStation,
			wantSSID:    "home",
			wantStarted: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Logger = zaptest.NewLogger(t)
			res, err := Start(tt.radio, tt.store, tt.opts)
			if err != nil {
				t.Fatalf("Start failed: %v", err)
			}
			if res.Path != tt.wantPath || res.SSID != tt.wantSSID {
				t.Errorf("Expected %s/%s, got %s/%s", tt.wantPath, tt.wantSSID, res.Path, res.SSID)
			}
			if res.Reboot != tt.wantReboot {
				t.Errorf("Expected reboot=%v, got %v", tt.wantReboot, res.Reboot)
			}
			if res.StationFailed != tt.wantDeleted || tt.store.deleted != tt.wantDeleted {
				t.Errorf("Expected station deleted=%v, got result=%v store=%v", tt.wantDeleted, res.StationFailed, tt.store.deleted)
			}
			if len(tt.radio.started) != len(tt.wantStarted) {
				t.Fatalf("Expected access point attempts %v, got %v", tt.wantStarted, tt.radio.started)
			}
			for i := range tt.wantStarted {
				if tt.radio.started[i] != tt.wantStarted[i] {
					t.Errorf("Expected attempt %d to be %s, got %s", i, tt.wantStarted[i], tt.radio.started[i])
				}
			}
			if len(tt.store.consumed) != 1 || tt.store.consumed[0] != store.FlagReboot {
				t.Errorf("Expected reboot flag to be consumed once, got %v", tt.store.consumed)
			}
		})
	}
}

func TestStartFails(t *testing.T) {
	radio := &fakeRadio{failAP: map[string]bool{DefaultFallbackSSID: true}}
	res, err := Start(radio, &fakeStore{}, Options{Logger: zaptest.NewLogger(t)})
	if !errors.Is(err, ErrNoAccessPoint) {
		t.Errorf("Expected ErrNoAccessPoint, got %v", err)
	}
	if res.Path != PathNone {
		t.Errorf("Expected no path, got %s", res.Path)
	}
}

func TestPath(t *testing.T) {
	tests := []struct {
		path Path
		name string
		ap   bool
	}{
		{PathNone, "none", false},
		{PathStation, "station", false},
		{PathAccessPointProvided, "access_point_provided", true},
		{PathAccessPointSaved, "access_point_saved", true},
		{PathAccessPointFallback, "access_point_fallback", true},
	}
	for _, tt := range tests {
		if got := tt.path.String(); got != tt.name {
			t.Errorf("Expected %s, got %s", tt.name, got)
		}
		if got := tt.path.AccessPoint(); got != tt.ap {
			t.Errorf("Expected %s AccessPoint()=%v, got %v", tt.name, tt.ap, got)
		}
	}
}
