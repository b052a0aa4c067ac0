package portal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/muurk/wifictl/internal/metrics"
	"github.com/muurk/wifictl/internal/wifi"
)

type testPortal struct {
	server *Server
	http   *httptest.Server
}

func newTestPortal(t *testing.T, cfg Config) *testPortal {
	t.Helper()
	if cfg.Controller == nil {
		cfg.Controller = &fakeController{}
	}
	cfg.Logger = zaptest.NewLogger(t)
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.hub.Close(ctx)
		ts.Close()
	})
	return &testPortal{server: srv, http: ts}
}

func (p *testPortal) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(p.http.URL, "http") + DefaultPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if msg := readMessage(t, conn); msg.Status != "ws_ready" {
		t.Fatalf("Expected ws_ready greeting, got %+v", msg)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
}

func TestServerRequestResponse(t *testing.T) {
	p := newTestPortal(t, Config{})
	conn := p.dial(t)

	send(t, conn, Message{Type: TypeRequest, Target: TargetWebSocket, Action: ActionPing})
	if msg := readMessage(t, conn); msg.Status != "pong" {
		t.Errorf("Expected pong, got %+v", msg)
	}

	send(t, conn, Message{Type: TypeRequest, Target: TargetWiFi, Action: ActionScanStart})
	if msg := readMessage(t, conn); msg.Status != "ap_scan_started" {
		t.Errorf("Expected ap_scan_started, got %+v", msg)
	}
}

func TestServerInvalidJSON(t *testing.T) {
	p := newTestPortal(t, Config{})
	conn := p.dial(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Target != TargetSystem || msg.Status != "error_json" {
		t.Errorf("Expected system/error_json, got %+v", msg)
	}
}

func TestServerBroadcastsEvents(t *testing.T) {
	p := newTestPortal(t, Config{})
	a := p.dial(t)
	b := p.dial(t)

	waitFor(t, func() bool { return p.server.GetActiveConnections() == 2 })
	p.server.Hub().Observe(wifi.StationConnected{SSID: "home", IP: "192.168.1.101"})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		if msg.Type != TypeEvent || msg.Status != "ap_got_ip" {
			t.Errorf("Expected ap_got_ip event, got %+v", msg)
		}
	}
}

func TestServerRateLimit(t *testing.T) {
	rec := metrics.New()
	p := newTestPortal(t, Config{CommandsPerSecond: 0.01, Burst: 1, Recorder: rec})
	conn := p.dial(t)

	ping := Message{Type: TypeRequest, Target: TargetWebSocket, Action: ActionPing}
	send(t, conn, ping)
	if msg := readMessage(t, conn); msg.Status != "pong" {
		t.Fatalf("Expected first request to pass, got %+v", msg)
	}
	send(t, conn, ping)
	if msg := readMessage(t, conn); msg.Status != "error_rate_limited" {
		t.Errorf("Expected error_rate_limited, got %+v", msg)
	}

	body := get(t, p.http.URL+"/metrics")
	for _, want := range []string{
		"wifictl_portal_throttled_total 1",
		`wifictl_portal_messages_total{action="ping"} 2`,
		"wifictl_portal_clients 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}

func TestServerClientDisconnect(t *testing.T) {
	p := newTestPortal(t, Config{})
	conn := p.dial(t)
	waitFor(t, func() bool { return p.server.GetActiveConnections() == 1 })

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	waitFor(t, func() bool { return p.server.GetActiveConnections() == 0 })
}

func TestServerWithoutMetrics(t *testing.T) {
	p := newTestPortal(t, Config{})
	resp, err := http.Get(p.http.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without recorder, got %d", resp.StatusCode)
	}
}

func TestServerStartShutdown(t *testing.T) {
	srv, err := New(Config{Listen: "127.0.0.1:0", Controller: &fakeController{}, Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	waitFor(t, func() bool { return srv.Addr() != nil })
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr().String()+DefaultPath, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	if msg := readMessage(t, conn); msg.Status != "ws_ready" {
		t.Fatalf("Expected ws_ready, got %+v", msg)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	waitFor(t, func() bool { return srv.GetActiveConnections() == 0 })
}

func TestNewRequiresController(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("Expected error without controller")
	}
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}
