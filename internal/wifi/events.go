package wifi

import "github.com/muurk/wifictl/internal/reconnect"

// Event is a normalized notification delivered to the Observer.
type Event interface {
	// Name is the stable identifier used by transports.
	Name() string
}

// Observer receives events. It is called from the event delivery goroutine
// or from the goroutine of the operation that produced the event, never
// while the Manager's lock is held.
type Observer func(Event)

// ApScanStarted is emitted when a scan was accepted.
type ApScanStarted struct{}

// ApScanAlreadyInProgress is never emitted by the Manager; StartScan returns
// a state error instead. Transports use it to encode that error.
type ApScanAlreadyInProgress struct{}

// ApScanCompleted is emitted when a scan finished.
type ApScanCompleted struct {
	Count  int
	Failed bool
}

// StationConnecting is emitted when the link is up but no address is assigned.
type StationConnecting struct{}

// StationConnected is emitted when the station obtained an address.
type StationConnected struct {
	SSID    string
	IP      string
	Gateway string
	Netmask string
}

// StationDisconnected is emitted when the station link dropped.
type StationDisconnected struct {
	Reason     reconnect.Reason
	ReasonText string
	WillRetry  bool
	// ByRequest is set when the drop followed DisconnectStation.
	ByRequest bool
}

func (ApScanStarted) Name() string           { return "ap_scan_started" }
func (ApScanAlreadyInProgress) Name() string { return "ap_scan_already" }
func (ApScanCompleted) Name() string         { return "ap_scan_success" }
func (StationConnecting) Name() string       { return "ap_wait_ip" }
func (StationConnected) Name() string        { return "ap_got_ip" }
func (StationDisconnected) Name() string     { return "ap_disconnected" }

// Observers fans events out to several observers in order. Nil entries are
// skipped.
func Observers(obs ...Observer) Observer {
	return func(ev Event) {
		for _, o := range obs {
			if o != nil {
				o(ev)
			}
		}
	}
}
