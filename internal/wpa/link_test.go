package wpa

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/muurk/wifictl/internal/reconnect"
)

type step struct {
	state  string
	reason int32
}

func run(t *testing.T, tr *linkTracker, steps []step) (linkEdge, reconnect.Reason) {
	t.Helper()
	var (
		edge linkEdge
		r    reconnect.Reason
	)
	for _, s := range steps {
		e, rr := tr.observe(s.state, s.state != "", s.reason, s.reason != 0)
		if e != edgeNone {
			edge, r = e, rr
		}
	}
	return edge, r
}

func TestLinkTrackerUp(t *testing.T) {
	var tr linkTracker
	tr.begin()
	edge, _ := run(t, &tr, []step{{state: "scanning"}, {state: "associating"}, {state: "4way_handshake"}, {state: "completed"}})
	if edge != edgeUp || !tr.linked {
		t.Errorf("Expected link up, got %v", edge)
	}
	if e, _ := tr.observe("completed", true, 0, false); e != edgeNone {
		t.Error("Expected repeated completed to be ignored")
	}
}

func TestLinkTrackerFailures(t *testing.T) {
	tests := []struct {
		name  string
		steps []step
		want  reconnect.Reason
	}{
		{"wrong password", []step{{state: "scanning"}, {state: "4way_handshake"}, {state: "disconnected", reason: 15}}, reconnect.AuthFail},
		{"not found", []step{{state: "scanning"}, {state: "inactive"}}, reconnect.NoAPFound},
		{"assoc rejected", []step{{state: "scanning"}, {state: "associating"}, {state: "disconnected", reason: 17}}, reconnect.AssocTooMany},
		{"assoc failed", []step{{state: "scanning"}, {state: "associating"}, {state: "disconnected"}}, reconnect.AssocFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr linkTracker
			tr.begin()
			edge, r := run(t, &tr, tt.steps)
			if edge != edgeDown || r != tt.want {
				t.Errorf("Expected down with %v, got %v %v", tt.want, edge, r)
			}
			if tr.active() {
				t.Error("Expected tracker reset after down")
			}
		})
	}
}

func TestLinkTrackerInitialIdleStateIgnored(t *testing.T) {
	var tr linkTracker
	tr.begin()
	if e, _ := tr.observe("disconnected", true, 0, false); e != edgeNone {
		t.Error("Expected first idle state after select to be ignored")
	}
}

func TestLinkTrackerDrop(t *testing.T) {
	tests := []struct {
		name   string
		local  bool
		reason int32
		want   reconnect.Reason
	}{
		{"remote deauth", false, 2, reconnect.AuthExpire},
		{"locally generated", false, -4, reconnect.Reason(4)},
		{"no reason", false, 0, reconnect.BeaconTimeout},
		{"requested", true, -3, reconnect.AssocLeave},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr linkTracker
			tr.begin()
			run(t, &tr, []step{{state: "scanning"}, {state: "completed"}})
			tr.local = tt.local
			edge, r := tr.observe("disconnected", true, tt.reason, tt.reason != 0)
			if edge != edgeDown || r != tt.want {
				t.Errorf("Expected down with %v, got %v %v", tt.want, edge, r)
			}
		})
	}
}

func TestLinkTrackerIgnoresUnsolicitedStates(t *testing.T) {
	var tr linkTracker
	if e, _ := tr.observe("completed", true, 0, false); e != edgeNone {
		t.Error("Expected completed without attempt to be ignored")
	}
	if e, _ := tr.observe("disconnected", true, 3, true); e != edgeNone {
		t.Error("Expected disconnected without link to be ignored")
	}
}

func TestParsePropertiesChanged(t *testing.T) {
	body := []interface{}{map[string]dbus.Variant{
		"State":            dbus.MakeVariant("completed"),
		"DisconnectReason": dbus.MakeVariant(int32(-3)),
	}}
	state, hasState, reason, hasReason := parsePropertiesChanged(body)
	if !hasState || state != "completed" || !hasReason || reason != -3 {
		t.Errorf("Unexpected parse %q %v %d %v", state, hasState, reason, hasReason)
	}

	_, hasState, _, hasReason = parsePropertiesChanged([]interface{}{"noise"})
	if hasState || hasReason {
		t.Error("Expected nothing from malformed body")
	}
	_, hasState, _, _ = parsePropertiesChanged(nil)
	if hasState {
		t.Error("Expected nothing from empty body")
	}
}
