// Package wpa implements wifi.Platform on top of wpa_supplicant's D-Bus
// interface (fi.w1.wpa_supplicant1).
//
// The station interface carries one network profile at a time. Access
// point mode uses a second interface (for example uap0) with a mode 2
// profile, so station and access point can run together.
//
// State changes arrive as Interface.PropertiesChanged signals and are
// reduced to link up and link down edges. wpa_supplicant's DisconnectReason
// carries 802.11 reason codes, which are reported unchanged; failures
// before the link came up are mapped to the driver codes NO_AP_FOUND,
// AUTH_FAIL and ASSOC_FAIL by the state the attempt reached.
//
// Addresses come from the system DHCP client; the platform polls the
// interface until one appears. Static addresses are applied with ip(8).
package wpa
