package wifi

import "fmt"

// Length limits for network credentials, in bytes.
const (
	MaxSSIDLength       = 32
	MinAPPasswordLength = 8
	MaxPasswordLength   = 63
)

// ValidateSSID checks that ssid is non-empty and fits the radio limit.
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return fmt.Errorf("SSID cannot be empty")
	}
	if len(ssid) > MaxSSIDLength {
		return fmt.Errorf("SSID must be %d bytes or less (got %d)", MaxSSIDLength, len(ssid))
	}
	return nil
}

// ValidateStationConfig checks ssid and password lengths of a station config.
func ValidateStationConfig(cfg StationConfig) error {
	if err := ValidateSSID(cfg.SSID); err != nil {
		return err
	}
	if len(cfg.Password) > MaxPasswordLength {
		return fmt.Errorf("password must be %d bytes or less (got %d)", MaxPasswordLength, len(cfg.Password))
	}
	return nil
}

// APPasswordUsable reports whether password is long enough, and short
// enough, to secure an access point.
func APPasswordUsable(password string) bool {
	return len(password) >= MinAPPasswordLength && len(password) <= MaxPasswordLength
}
