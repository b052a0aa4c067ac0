package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/store"
	"github.com/muurk/wifictl/internal/wifi"
)

// Controller is the part of the connection manager driven by the portal.
// *wifi.Manager implements it.
type Controller interface {
	StartScan() error
	ScanResults() (int, []wifi.ApRecord)
	ConnectStation(cfg *wifi.StationConfig, autoReconnect bool) error
	DisconnectStation() error
	SetAutoReconnect(enabled bool)
	StartAccessPoint(ssid, password string) error
	StopAccessPoint() error
	Status(ctx context.Context) (wifi.Status, error)
}

// Settings is the persisted state the portal reads and edits.
// *store.Store implements it.
type Settings interface {
	LoadStationConfig() (*wifi.StationConfig, error)
	DeleteStationConfig() error
	LoadAccessPointConfig() (*wifi.AccessPointConfig, error)
	SaveAccessPointConfig(cfg wifi.AccessPointConfig) error
	DeleteAccessPointConfig() error
	DeleteIPInfo(iface wifi.Interface) error
	IsFlagSet(name string) bool
	SetFlag(name string, value bool) error
}

// Handler routes decoded requests to the connection manager. Every request
// yields exactly one response.
type Handler struct {
	wifi     Controller
	settings Settings
	version  string
	restart  func()
	log      *zap.Logger
}

// NewHandler creates a Handler. settings may be nil, in which case
// configuration requests fail and the standalone flag is treated as unset.
func NewHandler(c Controller, settings Settings, version string, log *zap.Logger) *Handler {
	if log == nil {
		log = logging.Named("portal")
	}
	return &Handler{wifi: c, settings: settings, version: version, log: log}
}

// Handle processes one request.
func (h *Handler) Handle(ctx context.Context, msg Message) Message {
	if msg.Type != TypeRequest {
		return response(TargetSystem, "error_type", "unknown type")
	}
	switch msg.Target {
	case TargetWiFi:
		return h.handleWiFi(ctx, msg)
	case TargetControl:
		return h.handleControl(msg)
	case TargetWebSocket:
		if msg.Action == ActionPing {
			return response(TargetWebSocket, "pong", nil)
		}
		return response(TargetWebSocket, "error_action", "unknown action")
	case "":
		return response(TargetSystem, "error_target", "missing or invalid 'target'")
	default:
		return response(msg.Target, "error_target", "unknown target")
	}
}

func (h *Handler) handleWiFi(ctx context.Context, msg Message) Message {
	switch msg.Action {
	case ActionScanStart:
		return h.scanStart()
	case ActionScanResult:
		count, records := h.wifi.ScanResults()
		if records == nil {
			records = []wifi.ApRecord{}
		}
		return response(TargetWiFi, ActionScanResult, ScanResult{Count: count, Networks: records})
	case ActionConnect:
		return h.connect(msg.Data)
	case ActionDisconnect:
		if err := h.wifi.DisconnectStation(); err != nil {
			h.log.Error("Station disconnect failed", zap.Error(err))
			return response(TargetWiFi, "ap_disconnect_error", err.Error())
		}
		return response(TargetWiFi, "ap_disconnect_success", nil)
	case ActionStatus:
		s, err := h.wifi.Status(ctx)
		if err != nil {
			return response(TargetWiFi, "ap_status_error", err.Error())
		}
		return response(TargetWiFi, ActionStatus, ReportFromStatus(s, h.version))
	case ActionConfig:
		if hasData(msg.Data) {
			return h.saveConfig(msg.Data)
		}
		return h.loadConfig()
	case ActionStart:
		return h.startAccessPoint(msg.Data)
	case ActionStop:
		if err := h.wifi.StopAccessPoint(); err != nil {
			return response(TargetWiFi, "ap_stop_error", err.Error())
		}
		return response(TargetWiFi, "ap_stop_ok", nil)
	case ActionAutoReconnect:
		var req AutoReconnectRequest
		if err := decodeData(msg.Data, &req); err != nil || req.Enabled == nil {
			return response(TargetWiFi, "auto_reconnect_error", "missing 'enabled'")
		}
		h.wifi.SetAutoReconnect(*req.Enabled)
		return response(TargetWiFi, "auto_reconnect_ok", map[string]bool{"enabled": *req.Enabled})
	case "":
		return response(TargetWiFi, "common_error", "missing or invalid 'action'")
	default:
		return response(TargetWiFi, "common_error", "unknown action")
	}
}

// OnRestart sets the function that restarts the daemon after a reboot or
// reset request. Without one those requests fail.
func (h *Handler) OnRestart(f func()) {
	h.restart = f
}

// handleControl implements reboot, which comes back up with the access
// point forced, and reset, which also forgets every saved network.
func (h *Handler) handleControl(msg Message) Message {
	switch msg.Action {
	case ActionReboot, ActionReset:
	default:
		return response(TargetControl, "error_action", "unknown action")
	}
	if h.settings == nil || h.restart == nil {
		return response(TargetControl, "error_action", "restart unavailable")
	}

	if msg.Action == ActionReset {
		h.log.Info("Reset requested, deleting saved configuration")
		for name, del := range map[string]func() error{
			"station":      h.settings.DeleteStationConfig,
			"access_point": h.settings.DeleteAccessPointConfig,
			"station_ip":   func() error { return h.settings.DeleteIPInfo(wifi.InterfaceStation) },
		} {
			if err := del(); err != nil && !errors.Is(err, wifi.ErrConfigNotFound) {
				h.log.Error("Failed to delete configuration", zap.String("config", name), zap.Error(err))
				return response(TargetControl, "error_action", "reset failed")
			}
		}
	}
	if err := h.settings.SetFlag(store.FlagReboot, true); err != nil {
		h.log.Error("Failed to set reboot flag", zap.Error(err))
		return response(TargetControl, "error_action", "save failed")
	}

	h.log.Info("Restart scheduled", zap.String("action", msg.Action))
	h.restart()
	return response(TargetControl, msg.Action+"_scheduled", nil)
}

func (h *Handler) scanStart() Message {
	err := h.wifi.StartScan()
	switch {
	case err == nil:
		return response(TargetWiFi, wifi.ApScanStarted{}.Name(), nil)
	case wifi.IsStateError(err):
		return response(TargetWiFi, wifi.ApScanAlreadyInProgress{}.Name(), nil)
	default:
		h.log.Warn("Scan request failed", zap.Error(err))
		return response(TargetWiFi, "ap_scan_error", err.Error())
	}
}

func (h *Handler) connect(data json.RawMessage) Message {
	const status = "ap_connect_error"

	if h.standalone() {
		return response(TargetWiFi, status, "standalone mode active")
	}
	if !hasData(data) {
		return response(TargetWiFi, status, "missing or invalid 'data'")
	}
	var req ConnectRequest
	if err := decodeData(data, &req); err != nil {
		return response(TargetWiFi, status, "missing or invalid 'data'")
	}
	cfg, err := req.stationConfig()
	if err != nil {
		return response(TargetWiFi, status, err.Error())
	}

	// Credentials from the portal are only saved once they obtained an
	// address, so a stale entry must not be retried in the meantime.
	if h.settings != nil {
		if err := h.settings.DeleteStationConfig(); err != nil && !errors.Is(err, wifi.ErrConfigNotFound) {
			h.log.Warn("Failed to delete saved station config", zap.Error(err))
		}
	}

	h.log.Info("Connecting station from portal",
		zap.String("ssid", cfg.SSID),
		zap.Stringer("auth", cfg.AuthMode),
	)
	if err := h.wifi.ConnectStation(&cfg, false); err != nil {
		h.log.Error("Station connect error", zap.Error(err))
		return response(TargetWiFi, status, err.Error())
	}
	return response(TargetWiFi, "ap_connect_ok", nil)
}

// stationConfig validates the request. An empty or missing password joins
// an open network whatever authmode was sent.
func (r ConnectRequest) stationConfig() (wifi.StationConfig, error) {
	if r.SSID == nil || *r.SSID == "" {
		return wifi.StationConfig{}, errors.New("ssid is required")
	}
	cfg := wifi.StationConfig{SSID: *r.SSID, AuthMode: wifi.AuthOpen}
	if r.AuthMode != nil {
		mode, err := wifi.ParseAuthMode(*r.AuthMode)
		if err != nil || mode == wifi.AuthWPA2Enterprise {
			return wifi.StationConfig{}, errors.New("invalid authmode")
		}
		cfg.AuthMode = mode
	}
	if r.Password != nil {
		cfg.Password = *r.Password
	}
	if cfg.Password == "" {
		cfg.AuthMode = wifi.AuthOpen
	}
	if err := wifi.ValidateStationConfig(cfg); err != nil {
		return wifi.StationConfig{}, err
	}
	return cfg, nil
}

func (h *Handler) loadConfig() Message {
	if h.settings == nil {
		return response(TargetWiFi, "ap_config_error", "settings unavailable")
	}
	report := ConfigReport{Standalone: h.standalone()}
	if sta, err := h.settings.LoadStationConfig(); err == nil {
		report.Station = &StationSummary{SSID: sta.SSID, AuthMode: sta.AuthMode, HasPassword: sta.Password != ""}
	} else if !errors.Is(err, wifi.ErrConfigNotFound) {
		h.log.Warn("Failed to load station config", zap.Error(err))
	}
	if ap, err := h.settings.LoadAccessPointConfig(); err == nil {
		report.AccessPoint = &AccessPointSummary{SSID: ap.SSID, HasPassword: ap.Password != ""}
	} else if !errors.Is(err, wifi.ErrConfigNotFound) {
		h.log.Warn("Failed to load access point config", zap.Error(err))
	}
	return response(TargetWiFi, ActionConfig, report)
}

func (h *Handler) saveConfig(data json.RawMessage) Message {
	const status = "ap_config_error"

	if h.settings == nil {
		return response(TargetWiFi, status, "settings unavailable")
	}
	var req AccessPointRequest
	if err := decodeData(data, &req); err != nil {
		return response(TargetWiFi, status, "missing or invalid 'data'")
	}

	var ap *wifi.AccessPointConfig
	if req.SSID != nil {
		cfg, err := req.accessPointConfig()
		if err != nil {
			return response(TargetWiFi, status, err.Error())
		}
		if err := h.settings.SaveAccessPointConfig(cfg); err != nil {
			h.log.Error("Failed to save access point config", zap.Error(err))
			return response(TargetWiFi, status, "save failed")
		}
		ap = &cfg
	}
	if req.Standalone != nil {
		if err := h.settings.SetFlag(store.FlagStandalone, *req.Standalone); err != nil {
			h.log.Error("Failed to save standalone flag", zap.Error(err))
			return response(TargetWiFi, status, "save failed")
		}
	}

	if req.Restart && ap != nil {
		if err := h.restartAccessPoint(*ap); err != nil {
			return response(TargetWiFi, status, err.Error())
		}
	}
	return response(TargetWiFi, "ap_config_saved", nil)
}

func (h *Handler) restartAccessPoint(cfg wifi.AccessPointConfig) error {
	if err := h.wifi.StopAccessPoint(); err != nil {
		h.log.Debug("Stopping access point before restart failed", zap.Error(err))
	}
	if err := h.wifi.StartAccessPoint(cfg.SSID, cfg.Password); err != nil {
		h.log.Error("Access point restart failed", zap.Error(err))
		return fmt.Errorf("restart failed: %w", err)
	}
	return nil
}

func (h *Handler) startAccessPoint(data json.RawMessage) Message {
	const status = "ap_start_error"

	var req AccessPointRequest
	if hasData(data) {
		if err := decodeData(data, &req); err != nil {
			return response(TargetWiFi, status, "missing or invalid 'data'")
		}
	}

	var cfg wifi.AccessPointConfig
	switch {
	case req.SSID != nil:
		c, err := req.accessPointConfig()
		if err != nil {
			return response(TargetWiFi, status, err.Error())
		}
		cfg = c
	case h.settings != nil:
		saved, err := h.settings.LoadAccessPointConfig()
		if err != nil {
			return response(TargetWiFi, status, "no access point configuration")
		}
		cfg = *saved
	default:
		return response(TargetWiFi, status, "no access point configuration")
	}

	if err := h.wifi.StartAccessPoint(cfg.SSID, cfg.Password); err != nil {
		return response(TargetWiFi, status, err.Error())
	}
	return response(TargetWiFi, "ap_start_ok", nil)
}

func (r AccessPointRequest) accessPointConfig() (wifi.AccessPointConfig, error) {
	cfg := wifi.AccessPointConfig{AuthMode: wifi.AuthOpen}
	if r.SSID != nil {
		cfg.SSID = *r.SSID
	}
	if err := wifi.ValidateSSID(cfg.SSID); err != nil {
		return wifi.AccessPointConfig{}, err
	}
	if r.Password != nil {
		cfg.Password = *r.Password
	}
	if cfg.Password != "" {
		if !wifi.APPasswordUsable(cfg.Password) {
			return wifi.AccessPointConfig{}, fmt.Errorf("password must be %d-%d bytes", wifi.MinAPPasswordLength, wifi.MaxPasswordLength)
		}
		cfg.AuthMode = wifi.AuthWPA2PSK
	}
	return cfg, nil
}

func (h *Handler) standalone() bool {
	return h.settings != nil && h.settings.IsFlagSet(store.FlagStandalone)
}

func hasData(data json.RawMessage) bool {
	return len(data) > 0 && string(data) != "null"
}

func decodeData(data json.RawMessage, v interface{}) error {
	if !hasData(data) {
		return nil
	}
	return json.Unmarshal(data, v)
}
