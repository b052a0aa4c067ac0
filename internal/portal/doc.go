// Package portal implements the device configuration portal: JSON messages
// exchanged over a WebSocket.
//
// # Message Format
//
// Every frame is a JSON object with a "type" of request, response or event.
// Requests name a "target" and an "action" and may carry "data":
//
//	{"type":"request","target":"wifi","action":"ap_connect",
//	 "data":{"ssid":"home","password":"secret123","authmode":"WPA2"}}
//
// Each request receives exactly one response whose "status" names the
// outcome, e.g. "ap_connect_ok" or "ap_connect_error" with the reason as
// data. Connection manager events are broadcast to every client as events
// whose status is the event name ("ap_scan_success", "ap_got_ip",
// "ap_disconnected", ...).
//
// # WiFi Actions
//
//   - ap_scan_start, ap_scan_result: start a scan and fetch its networks
//   - ap_connect, ap_disconnect: join or leave a network
//   - ap_status: mode, link details and internet reachability
//   - ap_config: read the saved configuration, or with data save the
//     access point credentials and the standalone flag
//   - ap_start, ap_stop: control the access point
//   - auto_reconnect: toggle automatic reconnection
//
// The "control" target accepts "reboot", which restarts the daemon with the
// access point forced on, and "reset", which also deletes the saved station,
// access point and addressing configuration. The "websocket" target answers
// "ping" with "pong".
//
// # Limits
//
// Requests are rate limited per client with a token bucket. Throttled
// requests are answered with "error_rate_limited".
package portal
