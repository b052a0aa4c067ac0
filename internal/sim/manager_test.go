package sim_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/muurk/wifictl/internal/radio"
	"github.com/muurk/wifictl/internal/reconnect"
	"github.com/muurk/wifictl/internal/sim"
	"github.com/muurk/wifictl/internal/wifi"
)

type harness struct {
	platform *sim.Platform
	manager  *wifi.Manager
	events   chan wifi.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	p := sim.New(sim.Config{
		Networks: []sim.Network{{SSID: "home", Password: "password1", RSSI: -50, Channel: 6, AuthMode: wifi.AuthWPA2PSK}},
		Latency:  time.Millisecond,
		Logger:   log,
	})
	m, err := wifi.New(wifi.Config{Platform: p, Logger: log})
	if err != nil {
		t.Fatalf("wifi.New failed: %v", err)
	}
	h := &harness{platform: p, manager: m, events: make(chan wifi.Event, 32)}
	m.Subscribe(func(ev wifi.Event) { h.events <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = m.Close()
		_ = p.Close()
	})
	return h
}

func (h *harness) await(t *testing.T, name string) wifi.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if ev.Name() == name {
				return ev
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %s", name)
			return nil
		}
	}
}

func TestManagerConnectsAndRecovers(t *testing.T) {
	h := newHarness(t)

	if err := h.manager.ConnectStation(&wifi.StationConfig{SSID: "home", Password: "password1"}, true); err != nil {
		t.Fatalf("ConnectStation failed: %v", err)
	}
	h.await(t, "ap_wait_ip")
	got := h.await(t, "ap_got_ip").(wifi.StationConnected)
	if got.SSID != "home" {
		t.Errorf("Expected SSID home, got %s", got.SSID)
	}

	h.platform.Drop(reconnect.FourWayHandshakeTimeout)
	dis := h.await(t, "ap_disconnected").(wifi.StationDisconnected)
	if !dis.WillRetry {
		t.Errorf("Expected retry after handshake timeout, got %+v", dis)
	}
	h.await(t, "ap_got_ip")
}

func TestManagerWrongPasswordStops(t *testing.T) {
	h := newHarness(t)

	_ = h.manager.ConnectStation(&wifi.StationConfig{SSID: "home", Password: "letmein1"}, true)
	dis := h.await(t, "ap_disconnected").(wifi.StationDisconnected)
	if dis.Reason != reconnect.AuthFail || dis.WillRetry {
		t.Errorf("Expected non-retried AUTH_FAIL, got %+v", dis)
	}

	st, err := h.manager.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.AutoReconnect || st.ReconnectPending {
		t.Errorf("Expected auto-reconnect disabled, got %+v", st)
	}
}

func TestManagerUserDisconnectLeavesAccessPoint(t *testing.T) {
	h := newHarness(t)

	if err := h.manager.StartAccessPoint("Device", "password1"); err != nil {
		t.Fatalf("StartAccessPoint failed: %v", err)
	}
	_ = h.manager.ConnectStation(&wifi.StationConfig{SSID: "home", Password: "password1"}, true)
	h.await(t, "ap_got_ip")
	if h.platform.Mode() != radio.Both {
		t.Fatalf("Expected apsta, got %s", h.platform.Mode())
	}

	if err := h.manager.DisconnectStation(); err != nil {
		t.Fatalf("DisconnectStation failed: %v", err)
	}
	dis := h.await(t, "ap_disconnected").(wifi.StationDisconnected)
	if !dis.ByRequest || dis.WillRetry {
		t.Errorf("Expected requested disconnect, got %+v", dis)
	}
	if h.platform.Mode() != radio.AccessPoint {
		t.Errorf("Expected ap mode after disconnect, got %s", h.platform.Mode())
	}
	if _, ok := h.platform.AccessPoint(); !ok {
		t.Error("Expected access point to keep running")
	}
}

func TestManagerScan(t *testing.T) {
	h := newHarness(t)

	if err := h.manager.StartScan(); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	done := h.await(t, "ap_scan_success").(wifi.ApScanCompleted)
	if done.Count != 1 || done.Failed {
		t.Errorf("Expected one network, got %+v", done)
	}
	n, records := h.manager.ScanResults()
	if n != 1 || records[0].SSID != "home" {
		t.Errorf("Unexpected results %d %+v", n, records)
	}
}

func TestManagerDisconnectThenConnect(t *testing.T) {
	h := newHarness(t)

	if err := h.manager.ConnectStation(&wifi.StationConfig{SSID: "home", Password: "password1"}, true); err != nil {
		t.Fatalf("ConnectStation failed: %v", err)
	}
	h.await(t, "ap_got_ip")

	if err := h.manager.DisconnectStation(); err != nil {
		t.Fatalf("DisconnectStation failed: %v", err)
	}
	if err := h.manager.ConnectStation(&wifi.StationConfig{SSID: "home", Password: "password1"}, false); err != nil {
		t.Fatalf("ConnectStation failed: %v", err)
	}
	h.await(t, "ap_got_ip")
	// Leave time for a late leave event to be handled.
	time.Sleep(50 * time.Millisecond)

	st, err := h.manager.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Station != wifi.StateConnected || st.Mode != radio.Station {
		t.Errorf("Expected connected station after disconnect and connect, got station=%v mode=%v", st.Station, st.Mode)
	}
	if h.platform.Mode() != radio.Station {
		t.Errorf("Expected platform in station mode, got %s", h.platform.Mode())
	}
}
