package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/wifictl/internal/logging"
)

func TestProcessMalformedFrameKeepsPasswordOutOfLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	prev := logging.GetLogger()
	logging.SetLogger(log)
	t.Cleanup(func() { logging.SetLogger(prev) })

	h := NewHub(NewHandler(&fakeController{}, nil, "", zaptest.NewLogger(t)), 0, 0, nil, log)
	c := &client{hub: h, remoteAddr: "10.0.0.2:5000"}

	frame := `{"type":"request","target":"wifi","action":"ap_connect","data":{"ssid":"home","password":"hunter222"`
	resp := c.process(context.Background(), []byte(frame))
	if resp.Status != "error_json" {
		t.Errorf("Expected error_json, got %s", resp.Status)
	}

	if logs.FilterMessage("JSON parse error").Len() != 1 {
		t.Errorf("Expected one parse error entry, got %d", logs.FilterMessage("JSON parse error").Len())
	}
	for _, entry := range logs.All() {
		line := entry.Message + fmt.Sprint(entry.ContextMap())
		if strings.Contains(line, "hunter222") {
			t.Errorf("Expected password to stay out of logs, got %s", line)
		}
	}
}

func TestProcessLogsRedactedRequest(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logging.GetLogger()
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(prev) })

	h := NewHub(NewHandler(&fakeController{}, nil, "", zaptest.NewLogger(t)), 0, 0, nil, zaptest.NewLogger(t))
	c := &client{hub: h, remoteAddr: "10.0.0.2:5000"}

	msg := request(t, ActionConnect, map[string]string{"ssid": "home", "password": "hunter222"})
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	c.process(context.Background(), data)

	entries := logs.FilterMessage("Portal message").All()
	if len(entries) == 0 {
		t.Fatal("Expected the request to be logged")
	}
	for _, entry := range entries {
		if content, _ := entry.ContextMap()["content"].(string); strings.Contains(content, "hunter222") {
			t.Errorf("Expected redacted content, got %s", content)
		}
	}
}
