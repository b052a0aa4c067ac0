package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/muurk/wifictl/internal/wifi"
)

var (
	stationBucket  = []byte("station")
	apBucket       = []byte("access_point")
	ipInfoBucket   = []byte("ipinfo")
	settingsBucket = []byte("settings")
	flagsBucket    = []byte("flags")

	configKey   = []byte("config")
	hostnameKey = []byte("hostname")
)

// Flag names used by the daemon.
const (
	FlagReboot     = "is_reboot"
	FlagStandalone = "standalone"
)

// MaxHostnameLength is the longest hostname accepted by SaveHostname.
const MaxHostnameLength = 63

// Store persists connection manager configuration in a bbolt database.
// It implements wifi.Store.
type Store struct {
	db *bbolt.DB
}

var _ wifi.Store = (*Store)(nil)

// Open opens or creates the database at path, creating parent directories.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{stationBucket, apBucket, ipInfoBucket, settingsBucket, flagsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize store buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) setJSON(bucket, key []byte, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(key, payload)
	})
}

// getJSON decodes the stored value into v, returning an error wrapping
// wifi.ErrConfigNotFound when the key is absent.
func (s *Store) getJSON(bucket, key []byte, v interface{}) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get(key)
		if data == nil || bytes.Equal(data, []byte("null")) {
			return fmt.Errorf("%s/%s: %w", bucket, key, wifi.ErrConfigNotFound)
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("could not unmarshal %s/%s: %w", bucket, key, err)
		}
		return nil
	})
}

func (s *Store) delete(bucket, key []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete(key)
	})
}

// LoadStationConfig returns the saved station credentials.
func (s *Store) LoadStationConfig() (*wifi.StationConfig, error) {
	var cfg wifi.StationConfig
	if err := s.getJSON(stationBucket, configKey, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveStationConfig stores station credentials.
func (s *Store) SaveStationConfig(cfg wifi.StationConfig) error {
	if err := wifi.ValidateStationConfig(cfg); err != nil {
		return err
	}
	return s.setJSON(stationBucket, configKey, cfg)
}

// DeleteStationConfig removes the station credentials.
func (s *Store) DeleteStationConfig() error {
	return s.delete(stationBucket, configKey)
}

// LoadAccessPointConfig returns the saved access point settings.
func (s *Store) LoadAccessPointConfig() (*wifi.AccessPointConfig, error) {
	var cfg wifi.AccessPointConfig
	if err := s.getJSON(apBucket, configKey, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveAccessPointConfig stores access point settings.
func (s *Store) SaveAccessPointConfig(cfg wifi.AccessPointConfig) error {
	if err := wifi.ValidateSSID(cfg.SSID); err != nil {
		return err
	}
	return s.setJSON(apBucket, configKey, cfg)
}

// DeleteAccessPointConfig removes the access point settings.
func (s *Store) DeleteAccessPointConfig() error {
	return s.delete(apBucket, configKey)
}

// LoadIPInfo returns the static address of an interface.
func (s *Store) LoadIPInfo(iface wifi.Interface) (*wifi.IPInfo, error) {
	var info wifi.IPInfo
	if err := s.getJSON(ipInfoBucket, []byte(iface.String()), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SaveIPInfo stores a static address for an interface.
func (s *Store) SaveIPInfo(iface wifi.Interface, info wifi.IPInfo) error {
	if !info.IP.Is4() || !info.Netmask.Is4() {
		return errors.New("static IP and netmask must be IPv4 addresses")
	}
	return s.setJSON(ipInfoBucket, []byte(iface.String()), info)
}

// DeleteIPInfo removes the static address so the interface uses DHCP.
func (s *Store) DeleteIPInfo(iface wifi.Interface) error {
	return s.delete(ipInfoBucket, []byte(iface.String()))
}

// LoadHostname returns the saved device hostname.
func (s *Store) LoadHostname() (string, error) {
	var name string
	if err := s.getJSON(settingsBucket, hostnameKey, &name); err != nil {
		return "", err
	}
	return name, nil
}

// SaveHostname stores the device hostname (1-63 bytes).
func (s *Store) SaveHostname(name string) error {
	if name == "" || len(name) > MaxHostnameLength {
		return fmt.Errorf("hostname must be 1-%d bytes (got %d)", MaxHostnameLength, len(name))
	}
	return s.setJSON(settingsBucket, hostnameKey, name)
}

// SetFlag stores a boolean flag.
func (s *Store) SetFlag(name string, value bool) error {
	return s.setJSON(flagsBucket, []byte(name), value)
}

// IsFlagSet reports whether a flag is stored and true. Read errors count
// as unset.
func (s *Store) IsFlagSet(name string) bool {
	var v bool
	if err := s.getJSON(flagsBucket, []byte(name), &v); err != nil {
		return false
	}
	return v
}

// ClearFlag removes a flag.
func (s *Store) ClearFlag(name string) error {
	return s.delete(flagsBucket, []byte(name))
}

// ConsumeFlag reports whether a flag was set and clears it in the same
// transaction.
func (s *Store) ConsumeFlag(name string) (bool, error) {
	var set bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(flagsBucket)
		data := b.Get([]byte(name))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &set); err != nil {
			return fmt.Errorf("could not unmarshal flag %s: %w", name, err)
		}
		return b.Delete([]byte(name))
	})
	return set, err
}
