package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/wifictl/internal/portal"
	"github.com/muurk/wifictl/internal/wifi"
)

func TestSignalBars(t *testing.T) {
	tests := []struct {
		rssi int
		want string
	}{
		{-40, "▂▄▆█"},
		{-55, "▂▄▆_"},
		{-70, "▂▄__"},
		{-90, "▂___"},
	}
	for _, tt := range tests {
		if got := SignalBars(tt.rssi); got != tt.want {
			t.Errorf("Expected %s for %d dBm, got %s", tt.want, tt.rssi, got)
		}
	}
}

func TestSortByRSSI(t *testing.T) {
	records := []wifi.ApRecord{
		{SSID: "b", RSSI: -70},
		{SSID: "c", RSSI: -40},
		{SSID: "a", RSSI: -70},
	}
	SortByRSSI(records)
	got := records[0].SSID + records[1].SSID + records[2].SSID
	if got != "cab" {
		t.Errorf("Expected order cab, got %s", got)
	}
}

func TestRenderScanTablePlain(t *testing.T) {
	records := []wifi.ApRecord{
		{SSID: "home", BSSID: "aa:bb:cc:dd:ee:ff", RSSI: -48, Channel: 6, AuthMode: wifi.AuthWPA2PSK},
		{SSID: "", RSSI: -80, Channel: 1, AuthMode: wifi.AuthOpen},
	}
	out := RenderScanTable(records, 0, true)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 rows, got %q", out)
	}
	if lines[1] != "home\taa:bb:cc:dd:ee:ff\t6\t-48\tWPA2" {
		t.Errorf("Unexpected row: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "(hidden)\t") {
		t.Errorf("Expected hidden network label, got %q", lines[2])
	}
}

func TestRenderScanTableStyled(t *testing.T) {
	records := []wifi.ApRecord{{SSID: "home", RSSI: -48, Channel: 6, AuthMode: wifi.AuthWPA2PSK}}
	out := RenderScanTable(records, 80, false)
	for _, want := range []string{"SSID", "SECURITY", "home", "WPA2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected table to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderScanTableEmpty(t *testing.T) {
	if out := RenderScanTable(nil, 80, true); out != "No networks found" {
		t.Errorf("Expected empty message, got %q", out)
	}
}

func TestStatusDetails(t *testing.T) {
	internet := true
	report := portal.StatusReport{
		Mode:          "sta",
		Station:       "connected",
		AutoReconnect: true,
		Connect: portal.ConnectionInfo{
			SSID: "home", IP: "192.168.1.20", Gateway: "192.168.1.1", Netmask: "255.255.255.0",
			Internet: &internet,
		},
		LastReason: &portal.ReasonInfo{Code: 201, Text: "NO_AP_FOUND"},
		Version:    map[string]string{"application": "v1.0.0"},
	}

	got := map[string]string{}
	for _, d := range StatusDetails(report) {
		got[d.Key] = d.Value
	}
	want := map[string]string{
		"Mode":            "sta",
		"IP":              "192.168.1.20",
		"Internet":        "yes",
		"Auto reconnect":  "yes",
		"Last disconnect": "NO_AP_FOUND (201)",
		"Version":         "v1.0.0",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Expected %s=%q, got %q", k, v, got[k])
		}
	}
}

func TestStatusDetailsDisconnected(t *testing.T) {
	details := StatusDetails(portal.StatusReport{Mode: "ap", Station: "disconnected"})
	for _, d := range details {
		if d.Key == "SSID" || d.Key == "Internet" {
			t.Errorf("Expected no %s line while disconnected", d.Key)
		}
	}
}

func TestPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if !p.Plain() {
		t.Fatal("Expected plain output for a buffer")
	}
	p.PrintDetails("Status", "", []Detail{{"Mode", "ap"}, {"Station", "disconnected"}})
	p.PrintError("Scan failed", errors.New("radio busy"))

	want := "Mode: ap\nStation: disconnected\nScan failed: radio busy\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestRunWithSpinnerWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	ran := false
	err := RunWithSpinner(context.Background(), &buf, "Scanning", func(ctx context.Context) error {
		ran = true
		return errors.New("boom")
	})
	if !ran {
		t.Error("Expected task to run")
	}
	if err == nil || err.Error() != "boom" {
		t.Errorf("Expected task error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no spinner output, got %q", buf.String())
	}
}

func TestSpinnerModel(t *testing.T) {
	done := make(chan error, 1)
	m := NewSpinnerModel("Scanning", done)
	if !strings.Contains(m.View(), "Scanning") {
		t.Errorf("Expected label in view, got %q", m.View())
	}

	next, cmd := m.Update(doneMsg{err: errors.New("failed")})
	if cmd == nil {
		t.Error("Expected quit command")
	}
	sm := next.(SpinnerModel)
	if sm.Err() == nil || sm.View() != "" {
		t.Errorf("Expected finished model with error, got err=%v view=%q", sm.Err(), sm.View())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !next.(SpinnerModel).Cancelled() {
		t.Error("Expected ctrl+c to cancel")
	}
}

func TestWaitFor(t *testing.T) {
	done := make(chan error, 1)
	done <- nil
	msg := waitFor(done)()
	if dm, ok := msg.(doneMsg); !ok || dm.err != nil {
		t.Errorf("Expected doneMsg without error, got %#v", msg)
	}
}
