// Package wifi implements the Wi-Fi connection manager: it owns the radio
// mode, the station connection state, the reconnect schedule and the scan
// session, and reconciles caller requests with asynchronous events from the
// radio platform.
//
// # Components
//
//   - Manager operations (StartAccessPoint, StopAccessPoint, ConnectStation,
//     DisconnectStation, SetAutoReconnect) arbitrate the radio mode through
//     radio.ComputeTargetMode and drive the Platform.
//   - The event bridge (Run, HandleEvent) consumes PlatformEvent values,
//     updates state and forwards normalized Event values to the Observer.
//   - Station drops are classified by reconnect.Classify; retries are armed
//     on a timer and re-validated under the lock when it fires.
//   - StartScan and ScanResults manage the exclusive scan session.
//
// # Usage Example
//
//	mgr, err := wifi.New(wifi.Config{
//	    Platform: platform,
//	    Store:    store,
//	    Hostname: advertiser,
//	})
//	if err != nil {
//	    return err
//	}
//	mgr.Subscribe(func(ev wifi.Event) {
//	    log.Info("wifi event", zap.String("event", ev.Name()))
//	})
//	go mgr.Run(ctx)
//
//	if err := mgr.ConnectStation(&wifi.StationConfig{SSID: "home", Password: "secret123"}, true); err != nil {
//	    if wifi.IsArgumentError(err) {
//	        // bad credentials length
//	    }
//	}
//
// # Errors
//
// Every synchronous failure is a *Error carrying one of ArgumentError,
// TimeoutError, StateError, NotFoundError or HardwareError. Failures that
// happen after an operation returned (drops, failed scans, failed
// reconnects) are reported only as events.
//
// # Thread Safety
//
// All state lives behind one lock with a bounded wait: 1s for operations,
// 5s for Close and event delivery. A caller that cannot get the lock in
// time receives a TimeoutError. Platform Disconnect calls made by
// DisconnectStation and link replacement run outside the lock. Observer
// callbacks never run under the lock, so they may call back into the
// Manager.
package wifi
