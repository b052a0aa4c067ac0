package wpa

import (
	"github.com/godbus/dbus/v5"

	"github.com/muurk/wifictl/internal/reconnect"
)

// linkTracker turns the supplicant's State property stream into link up
// and link down edges with driver reason codes.
type linkTracker struct {
	attempting bool
	linked     bool
	local      bool
	lastState  string
	reason     int32
}

type linkEdge int

const (
	edgeNone linkEdge = iota
	edgeUp
	edgeDown
)

func (t *linkTracker) active() bool {
	return t.attempting || t.linked
}

func (t *linkTracker) begin() {
	t.attempting = true
	t.linked = false
	t.local = false
	t.reason = 0
	t.lastState = ""
}

func (t *linkTracker) reset() {
	*t = linkTracker{}
}

// observe consumes one PropertiesChanged update. The returned reason is
// only meaningful for edgeDown.
func (t *linkTracker) observe(state string, hasState bool, reason int32, hasReason bool) (linkEdge, reconnect.Reason) {
	if hasReason {
		t.reason = reason
	}
	if !hasState {
		return edgeNone, 0
	}
	prev := t.lastState
	t.lastState = state

	switch state {
	case "completed":
		if t.linked || !t.attempting {
			return edgeNone, 0
		}
		t.linked = true
		t.attempting = false
		return edgeUp, 0

	case "disconnected", "inactive", "interface_disabled":
		if !t.active() {
			return edgeNone, 0
		}
		// Selecting a network from an idle interface reports the idle
		// state once before scanning starts.
		if t.attempting && prev == "" && !t.local {
			return edgeNone, 0
		}
		r := t.downReason(prev)
		t.reset()
		return edgeDown, r
	}
	return edgeNone, 0
}

// downReason maps the end of a link or attempt to a driver reason code.
// A drop requested locally is always ASSOC_LEAVE.
func (t *linkTracker) downReason(prev string) reconnect.Reason {
	if t.local {
		return reconnect.AssocLeave
	}
	code := t.reason
	if code < 0 {
		code = -code
	}

	if t.linked {
		if code == 0 {
			return reconnect.BeaconTimeout
		}
		return reconnect.Reason(code)
	}

	switch prev {
	case "4way_handshake", "group_handshake":
		return reconnect.AuthFail
	case "scanning", "disconnected", "inactive":
		return reconnect.NoAPFound
	case "authenticating", "associating", "associated":
		if code != 0 {
			return reconnect.Reason(code)
		}
		return reconnect.AssocFail
	default:
		return reconnect.ConnectionFail
	}
}

// parsePropertiesChanged extracts State and DisconnectReason from the body
// of an Interface.PropertiesChanged signal.
func parsePropertiesChanged(body []interface{}) (state string, hasState bool, reason int32, hasReason bool) {
	if len(body) == 0 {
		return
	}
	props, ok := body[0].(map[string]dbus.Variant)
	if !ok {
		return
	}
	if v, ok := props["DisconnectReason"]; ok {
		reason, hasReason = v.Value().(int32)
	}
	if v, ok := props["State"]; ok {
		state, hasState = v.Value().(string)
	}
	return
}
