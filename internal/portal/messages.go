package portal

import (
	"encoding/json"
	"fmt"

	"github.com/muurk/wifictl/internal/wifi"
)

// Message kinds carried in the "type" field.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeEvent    = "event"
)

// Targets understood by the router.
const (
	TargetWiFi      = "wifi"
	TargetControl   = "control"
	TargetWebSocket = "websocket"
	TargetSystem    = "system"
)

// Actions of the wifi target.
const (
	ActionScanStart     = "ap_scan_start"
	ActionScanResult    = "ap_scan_result"
	ActionConnect       = "ap_connect"
	ActionDisconnect    = "ap_disconnect"
	ActionStatus        = "ap_status"
	ActionConfig        = "ap_config"
	ActionStart         = "ap_start"
	ActionStop          = "ap_stop"
	ActionAutoReconnect = "auto_reconnect"
	ActionPing          = "ping"
)

// Actions of the control target.
const (
	ActionReboot = "reboot"
	ActionReset  = "reset"
)

// Message is the JSON envelope exchanged with portal clients. Requests carry
// an action; responses and events carry a status.
type Message struct {
	Type   string          `json:"type"`
	Target string          `json:"target,omitempty"`
	Action string          `json:"action,omitempty"`
	Status string          `json:"status,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Request builds a request envelope. It is used by clients such as the
// wifictl status command.
func Request(target, action string, data interface{}) (Message, error) {
	m := Message{Type: TypeRequest, Target: target, Action: action}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Message{}, fmt.Errorf("failed to encode request data: %w", err)
		}
		m.Data = raw
	}
	return m, nil
}

func newMessage(kind, target, status string, data interface{}) Message {
	m := Message{Type: kind, Target: target, Status: status}
	if data == nil {
		return m
	}
	if s, ok := data.(string); ok && s == "" {
		return m
	}
	raw, err := json.Marshal(data)
	if err == nil {
		m.Data = raw
	}
	return m
}

func response(target, status string, data interface{}) Message {
	return newMessage(TypeResponse, target, status, data)
}

func event(target, status string, data interface{}) Message {
	return newMessage(TypeEvent, target, status, data)
}

// ConnectRequest is the data of an ap_connect request.
type ConnectRequest struct {
	SSID     *string `json:"ssid"`
	Password *string `json:"password"`
	AuthMode *string `json:"authmode"`
}

// AccessPointRequest is the data of ap_start and of ap_config updates.
type AccessPointRequest struct {
	SSID       *string `json:"ssid"`
	Password   *string `json:"password"`
	Standalone *bool   `json:"standalone"`
	Restart    bool    `json:"restart"`
}

// AutoReconnectRequest is the data of an auto_reconnect request.
type AutoReconnectRequest struct {
	Enabled *bool `json:"enabled"`
}

// ScanResult is the data of an ap_scan_result response.
type ScanResult struct {
	Count    int             `json:"count"`
	Networks []wifi.ApRecord `json:"networks"`
}

// ConnectionInfo describes the station link in an ap_status response.
type ConnectionInfo struct {
	SSID    string `json:"ssid"`
	IP      string `json:"ip"`
	Gateway string `json:"gateway"`
	Netmask string `json:"netmask"`
	// Internet is omitted when no reachability probe is configured.
	Internet *bool `json:"internet,omitempty"`
}

// StatusReport is the data of an ap_status response.
type StatusReport struct {
	Mode             string            `json:"mode"`
	Station          string            `json:"station"`
	AutoReconnect    bool              `json:"auto_reconnect"`
	ReconnectPending bool              `json:"reconnect_pending"`
	Scanning         bool              `json:"scanning"`
	LastReason       *ReasonInfo       `json:"last_reason,omitempty"`
	Connect          ConnectionInfo    `json:"connect"`
	Version          map[string]string `json:"version,omitempty"`
}

// ReasonInfo is a disconnect reason code with its name.
type ReasonInfo struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

// ConfigReport is the data of an ap_config response. Passwords are never
// echoed back.
type ConfigReport struct {
	Station     *StationSummary     `json:"station"`
	AccessPoint *AccessPointSummary `json:"access_point"`
	Standalone  bool                `json:"standalone"`
}

// StationSummary is the saved station configuration without its password.
type StationSummary struct {
	SSID        string        `json:"ssid"`
	AuthMode    wifi.AuthMode `json:"authmode"`
	HasPassword bool          `json:"has_password"`
}

// AccessPointSummary is the saved access point configuration without its
// password.
type AccessPointSummary struct {
	SSID        string `json:"ssid"`
	HasPassword bool   `json:"has_password"`
}

// ReportFromStatus converts a manager snapshot into its wire form.
func ReportFromStatus(s wifi.Status, version string) StatusReport {
	r := StatusReport{
		Mode:             s.Mode.String(),
		Station:          s.Station.String(),
		AutoReconnect:    s.AutoReconnect,
		ReconnectPending: s.ReconnectPending,
		Scanning:         s.Scanning,
		Connect: ConnectionInfo{
			SSID:     s.Link.SSID,
			IP:       s.Link.IP,
			Gateway:  s.Link.Gateway,
			Netmask:  s.Link.Netmask,
			Internet: s.Internet,
		},
	}
	if s.LastReason != nil {
		r.LastReason = &ReasonInfo{Code: int(*s.LastReason), Text: s.LastReason.String()}
	}
	if version != "" {
		r.Version = map[string]string{"application": version}
	}
	return r
}

// eventMessage encodes a manager event for broadcast.
func eventMessage(ev wifi.Event) Message {
	switch e := ev.(type) {
	case wifi.ApScanCompleted:
		data := map[string]interface{}{"count": e.Count}
		if e.Failed {
			data["failed"] = true
		}
		return event(TargetWiFi, e.Name(), data)
	case wifi.StationConnected:
		return event(TargetWiFi, e.Name(), wifi.Link{SSID: e.SSID, IP: e.IP, Gateway: e.Gateway, Netmask: e.Netmask})
	case wifi.StationDisconnected:
		return event(TargetWiFi, e.Name(), map[string]interface{}{
			"reason":     int(e.Reason),
			"reason_str": reasonText(e),
			"will_retry": e.WillRetry,
			"by_request": e.ByRequest,
		})
	default:
		return event(TargetWiFi, ev.Name(), nil)
	}
}

func reasonText(e wifi.StationDisconnected) string {
	if e.ReasonText != "" {
		return e.ReasonText
	}
	return e.Reason.String()
}
