// Package sim provides an in-memory radio for development and tests.
//
// The simulated platform knows a fixed list of networks. Association
// outcomes follow the driver's reason codes: an unknown SSID ends with
// NO_AP_FOUND (201), a wrong password with AUTH_FAIL (202), and a local
// disconnect with ASSOC_LEAVE (8). Drop injects any other reason.
//
// All outcomes are delivered on the Events channel after a short latency,
// never from inside the method that caused them.
package sim
