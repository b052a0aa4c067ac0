package radio

import "fmt"

// Mode is the operating mode of the wireless radio.
type Mode int

const (
	// Off means the radio is not running.
	Off Mode = iota
	// AccessPoint means the device advertises its own network.
	AccessPoint
	// Station means the device joins another network as a client.
	Station
	// Both runs the access point and station components concurrently.
	Both
)

// String returns the lowercase name used in logs and status payloads.
func (m Mode) String() string {
	switch m {
	case Off:
		return "off"
	case AccessPoint:
		return "ap"
	case Station:
		return "sta"
	case Both:
		return "apsta"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the four defined modes.
func (m Mode) Valid() bool {
	return m >= Off && m <= Both
}

// Has reports whether the sub-mode component is active in m.
// Has(Off) is always false.
func (m Mode) Has(sub Mode) bool {
	switch sub {
	case AccessPoint:
		return m == AccessPoint || m == Both
	case Station:
		return m == Station || m == Both
	default:
		return false
	}
}

// ComputeTargetMode returns the mode the radio should move to when the
// requested sub-mode (AccessPoint or Station) is enabled or disabled while
// the radio runs in current.
//
// The function is total: a requested value other than AccessPoint or
// Station, or an undefined current mode, yields current unchanged.
func ComputeTargetMode(current, requested Mode, enable bool) Mode {
	if !current.Valid() || (requested != AccessPoint && requested != Station) {
		return current
	}

	if enable {
		switch current {
		case Off:
			return requested
		case Both:
			return Both
		case requested:
			return current
		default:
			// the other single mode is active
			return Both
		}
	}

	switch current {
	case requested:
		return Off
	case Both:
		return other(requested)
	default:
		return current
	}
}

func other(sub Mode) Mode {
	if sub == AccessPoint {
		return Station
	}
	return AccessPoint
}

// ParseMode parses the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "off":
		return Off, nil
	case "ap":
		return AccessPoint, nil
	case "sta":
		return Station, nil
	case "apsta":
		return Both, nil
	default:
		return Off, fmt.Errorf("unknown radio mode %q", s)
	}
}
