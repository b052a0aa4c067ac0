// Package radio defines the operating modes of a Wi-Fi radio and the pure
// arbitration rule that decides how the mode changes when a caller enables
// or disables the access point or station component.
//
// # Modes
//
//   - Off: radio stopped
//   - AccessPoint: the device hosts its own network
//   - Station: the device is a client of another network
//   - Both: access point and station run at the same time
//
// # Arbitration
//
// ComputeTargetMode never performs I/O. Callers apply its result to the
// platform themselves:
//
//	next := radio.ComputeTargetMode(current, radio.Station, true)
//	if err := platform.SetMode(next); err != nil {
//	    return err
//	}
//
// Enabling a sub-mode merges it into the current mode (Off+Station=Station,
// AccessPoint+Station=Both). Disabling removes it (Both-AccessPoint=Station,
// Station-Station=Off). Requests that do not change anything, and requests
// outside the defined enum, return the current mode.
package radio
