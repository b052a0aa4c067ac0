package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/wifictl/internal/discovery"
	"github.com/muurk/wifictl/internal/portal"
	"github.com/muurk/wifictl/internal/radio"
)

// portalURL turns an address given on the command line into a WebSocket
// URL. Bare host:port values get the default portal path.
func portalURL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	addr = strings.TrimPrefix(addr, "http://")

	host, path := addr, discovery.DefaultPath
	if i := strings.Index(addr, "/"); i >= 0 {
		host, path = addr[:i], addr[i:]
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(discovery.DefaultPort))
	}
	return "ws://" + host + path
}

// portalClient is a one-request-at-a-time portal connection.
type portalClient struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func dialPortal(ctx context.Context, url string, timeout time.Duration) (*portalClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	c := &portalClient{conn: conn, timeout: timeout}

	ready, err := c.read(portal.TypeEvent)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if ready.Status != "ws_ready" {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected greeting %q", ready.Status)
	}
	return c, nil
}

func (c *portalClient) Close() error {
	return c.conn.Close()
}

// read returns the next message of type typ, skipping broadcast events
// when waiting for a response.
func (c *portalClient) read(typ string) (portal.Message, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return portal.Message{}, err
	}
	for {
		var msg portal.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return portal.Message{}, fmt.Errorf("failed to read from portal: %w", err)
		}
		if msg.Type == typ {
			return msg, nil
		}
	}
}

// Call sends a request and waits for its response.
func (c *portalClient) Call(target, action string, data interface{}) (portal.Message, error) {
	req, err := portal.Request(target, action, data)
	if err != nil {
		return portal.Message{}, err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return portal.Message{}, err
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return portal.Message{}, fmt.Errorf("failed to send request: %w", err)
	}
	return c.read(portal.TypeResponse)
}

// Status fetches the daemon status report.
func (c *portalClient) Status() (portal.StatusReport, error) {
	var report portal.StatusReport
	resp, err := c.Call(portal.TargetWiFi, portal.ActionStatus, nil)
	if err != nil {
		return report, err
	}
	if resp.Status != portal.ActionStatus {
		var reason string
		_ = json.Unmarshal(resp.Data, &reason)
		return report, fmt.Errorf("%s: %s", resp.Status, reason)
	}
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		return report, fmt.Errorf("invalid status report: %w", err)
	}
	if _, err := radio.ParseMode(report.Mode); err != nil {
		return report, fmt.Errorf("invalid status report: %w", err)
	}
	return report, nil
}
