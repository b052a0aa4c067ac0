package wpa

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/muurk/wifictl/internal/wifi"
)

// parseBSS converts the property map of a fi.w1.wpa_supplicant1.BSS object.
func parseBSS(props map[string]dbus.Variant) (wifi.ApRecord, error) {
	var rec wifi.ApRecord

	v, ok := props["SSID"]
	if !ok {
		return rec, errors.New("mandatory property SSID was missing")
	}
	ssid, ok := v.Value().([]byte)
	if !ok {
		return rec, fmt.Errorf("could not convert SSID: %v", v)
	}
	rec.SSID = string(ssid)

	if v, ok := props["BSSID"]; ok {
		if b, ok := v.Value().([]byte); ok && len(b) == 6 {
			rec.BSSID = net.HardwareAddr(b).String()
		}
	}
	if v, ok := props["Signal"]; ok {
		if s, ok := v.Value().(int16); ok {
			rec.RSSI = int(s)
		}
	}
	if v, ok := props["Frequency"]; ok {
		if f, ok := v.Value().(uint16); ok {
			rec.Channel = frequencyToChannel(int(f))
		}
	}
	rec.AuthMode = authModeOf(props)
	return rec, nil
}

// parseBSSList converts every parsable BSS, drops hidden networks and keeps
// the strongest entry per SSID, strongest first.
func parseBSSList(all []map[string]dbus.Variant) []wifi.ApRecord {
	best := make(map[string]wifi.ApRecord)
	for _, props := range all {
		rec, err := parseBSS(props)
		if err != nil || rec.SSID == "" {
			continue
		}
		if cur, ok := best[rec.SSID]; !ok || rec.RSSI > cur.RSSI {
			best[rec.SSID] = rec
		}
	}

	records := make([]wifi.ApRecord, 0, len(best))
	for _, rec := range best {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].RSSI != records[j].RSSI {
			return records[i].RSSI > records[j].RSSI
		}
		return records[i].SSID < records[j].SSID
	})
	return records
}

func keyMgmt(v dbus.Variant, present bool) []string {
	if !present {
		return nil
	}
	m, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return nil
	}
	km, ok := m["KeyMgmt"]
	if !ok {
		return nil
	}
	list, _ := km.Value().([]string)
	return list
}

func hasAny(list []string, match func(string) bool) bool {
	for _, s := range list {
		if match(s) {
			return true
		}
	}
	return false
}

func isPSK(s string) bool { return strings.Contains(s, "psk") }
func isSAE(s string) bool { return strings.Contains(s, "sae") }
func isEAP(s string) bool { return strings.Contains(s, "eap") }

// authModeOf derives the auth mode from the RSN, WPA and Privacy properties.
func authModeOf(props map[string]dbus.Variant) wifi.AuthMode {
	rsnV, rsnOK := props["RSN"]
	wpaV, wpaOK := props["WPA"]
	rsn := keyMgmt(rsnV, rsnOK)
	wpa := keyMgmt(wpaV, wpaOK)

	switch {
	case hasAny(rsn, isEAP):
		return wifi.AuthWPA2Enterprise
	case hasAny(rsn, isSAE) && hasAny(rsn, isPSK):
		return wifi.AuthWPA2WPA3PSK
	case hasAny(rsn, isSAE):
		return wifi.AuthWPA3PSK
	case len(rsn) > 0 && len(wpa) > 0:
		return wifi.AuthWPAWPA2PSK
	case len(rsn) > 0:
		return wifi.AuthWPA2PSK
	case len(wpa) > 0:
		return wifi.AuthWPAPSK
	}

	if v, ok := props["Privacy"]; ok {
		if p, ok := v.Value().(bool); ok && p {
			return wifi.AuthWEP
		}
	}
	return wifi.AuthOpen
}

// frequencyToChannel maps a centre frequency in MHz to its channel number,
// or 0 when the frequency is outside the 2.4, 5 and 6 GHz bands.
func frequencyToChannel(mhz int) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return (mhz - 2407) / 5
	case mhz >= 5160 && mhz <= 5885:
		return (mhz - 5000) / 5
	case mhz >= 5955 && mhz <= 7115:
		return (mhz - 5950) / 5
	default:
		return 0
	}
}

// channelToFrequency is the inverse of frequencyToChannel for 2.4 and
// 5 GHz channels. Channel 0 selects channel 6.
func channelToFrequency(ch int) int {
	switch {
	case ch == 0:
		return 2437
	case ch == 14:
		return 2484
	case ch >= 1 && ch <= 13:
		return 2407 + ch*5
	case ch >= 32 && ch <= 177:
		return 5000 + ch*5
	default:
		return 0
	}
}

// stationNetworkArgs builds the AddNetwork arguments for a station profile.
func stationNetworkArgs(cfg wifi.StationConfig) map[string]interface{} {
	args := map[string]interface{}{
		"ssid":      cfg.SSID,
		"scan_ssid": int32(1),
	}
	switch {
	case cfg.Password == "":
		args["key_mgmt"] = "NONE"
	case cfg.AuthMode == wifi.AuthWEP:
		args["key_mgmt"] = "NONE"
		args["wep_key0"] = cfg.Password
	case cfg.AuthMode == wifi.AuthWPA3PSK:
		args["key_mgmt"] = "SAE"
		args["sae_password"] = cfg.Password
		args["ieee80211w"] = int32(2)
	default:
		args["key_mgmt"] = "WPA-PSK SAE"
		args["psk"] = cfg.Password
		args["ieee80211w"] = int32(1)
	}
	return args
}

// accessPointNetworkArgs builds the AddNetwork arguments for an access
// point profile (mode 2).
func accessPointNetworkArgs(cfg wifi.AccessPointConfig) (map[string]interface{}, error) {
	freq := channelToFrequency(cfg.Channel)
	if freq == 0 {
		return nil, fmt.Errorf("unsupported access point channel %d", cfg.Channel)
	}
	args := map[string]interface{}{
		"ssid":      cfg.SSID,
		"mode":      int32(2),
		"frequency": int32(freq),
	}
	if cfg.AuthMode == wifi.AuthOpen || cfg.Password == "" {
		args["key_mgmt"] = "NONE"
	} else {
		args["key_mgmt"] = "WPA-PSK"
		args["proto"] = "RSN"
		args["pairwise"] = "CCMP"
		args["psk"] = cfg.Password
	}
	if cfg.Hidden {
		args["ignore_broadcast_ssid"] = int32(1)
	}
	return args, nil
}
