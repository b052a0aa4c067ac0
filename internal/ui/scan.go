package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/wifictl/internal/portal"
	"github.com/muurk/wifictl/internal/wifi"
)

// Signal thresholds in dBm
const (
	SignalGood = -60
	SignalFair = -75
)

// SignalBars renders rssi as a four step bar
func SignalBars(rssi int) string {
	switch {
	case rssi >= -50:
		return "▂▄▆█"
	case rssi >= SignalGood:
		return "▂▄▆_"
	case rssi >= SignalFair:
		return "▂▄__"
	default:
		return "▂___"
	}
}

func signalStyle(rssi int) lipgloss.Style {
	switch {
	case rssi >= SignalGood:
		return lipgloss.NewStyle().Foreground(SuccessColor)
	case rssi >= SignalFair:
		return lipgloss.NewStyle().Foreground(WarningColor)
	default:
		return lipgloss.NewStyle().Foreground(ErrorColor)
	}
}

// SortByRSSI orders records strongest first, then by SSID
func SortByRSSI(records []wifi.ApRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RSSI != records[j].RSSI {
			return records[i].RSSI > records[j].RSSI
		}
		return records[i].SSID < records[j].SSID
	})
}

func displaySSID(ssid string) string {
	if ssid == "" {
		return "(hidden)"
	}
	return ssid
}

// RenderScanTable renders scan records as a bordered table, or tab
// separated lines when plain is set.
func RenderScanTable(records []wifi.ApRecord, width int, plain bool) string {
	if len(records) == 0 {
		if plain {
			return "No networks found"
		}
		return MutedStyle.Render("No networks found")
	}

	if plain {
		var b strings.Builder
		b.WriteString("SSID\tBSSID\tCHANNEL\tRSSI\tSECURITY\n")
		for _, r := range records {
			fmt.Fprintf(&b, "%s\t%s\t%d\t%d\t%s\n", displaySSID(r.SSID), r.BSSID, r.Channel, r.RSSI, r.AuthMode)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			displaySSID(r.SSID),
			r.BSSID,
			strconv.Itoa(r.Channel),
			strconv.Itoa(r.RSSI),
			SignalBars(r.RSSI),
			r.AuthMode.String(),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers("SSID", "BSSID", "CH", "RSSI", "SIGNAL", "SECURITY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			if col == 4 && row >= 0 && row < len(records) {
				return signalStyle(records[row].RSSI).Padding(0, 1)
			}
			return TableCellStyle
		})
	if width > 0 {
		t = t.Width(width)
	}
	return t.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// StatusDetails lists the fields of a status report in display order
func StatusDetails(r portal.StatusReport) []Detail {
	details := []Detail{
		{"Mode", r.Mode},
		{"Station", r.Station},
	}
	if r.Connect.SSID != "" {
		details = append(details,
			Detail{"SSID", r.Connect.SSID},
			Detail{"IP", r.Connect.IP},
			Detail{"Gateway", r.Connect.Gateway},
			Detail{"Netmask", r.Connect.Netmask},
		)
	}
	if r.Connect.Internet != nil {
		details = append(details, Detail{"Internet", yesNo(*r.Connect.Internet)})
	}
	details = append(details,
		Detail{"Auto reconnect", yesNo(r.AutoReconnect)},
		Detail{"Reconnect pending", yesNo(r.ReconnectPending)},
		Detail{"Scanning", yesNo(r.Scanning)},
	)
	if r.LastReason != nil {
		details = append(details, Detail{"Last disconnect", fmt.Sprintf("%s (%d)", r.LastReason.Text, r.LastReason.Code)})
	}
	if v, ok := r.Version["application"]; ok {
		details = append(details, Detail{"Version", v})
	}
	return details
}

// stationMarker decorates the station state for styled output
func stationMarker(state string) string {
	switch state {
	case wifi.StateConnected.String():
		return SuccessStyle.Render(SuccessMarker + " " + state)
	case wifi.StateConnecting.String(), wifi.StateReconnectScheduled.String():
		return WarningStyle.Render(PendingMarker + " " + state)
	default:
		return MutedStyle.Render(state)
	}
}

// RenderStatus renders a daemon status report. addr is shown under the
// title when set.
func RenderStatus(r portal.StatusReport, addr string, width int, plain bool) string {
	details := StatusDetails(r)
	if !plain {
		details[1].Value = stationMarker(r.Station)
	}
	return RenderDetails("WiFi Status", addr, details, width, plain)
}
