package wpa

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	service        = "fi.w1.wpa_supplicant1"
	rootPath       = dbus.ObjectPath("/fi/w1/wpa_supplicant1")
	ifaceIntf      = service + ".Interface"
	bssIntf        = service + ".BSS"
	propertiesIntf = "org.freedesktop.DBus.Properties"
)

// supplicantInterface wraps one network interface managed by wpa_supplicant.
type supplicantInterface struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	ifname string
}

// getInterface returns the supplicant object for ifname, asking
// wpa_supplicant to manage the interface if it does not yet.
func getInterface(conn *dbus.Conn, ifname string) (*supplicantInterface, error) {
	root := conn.Object(service, rootPath)

	var path dbus.ObjectPath
	err := root.Call(service+".GetInterface", 0, ifname).Store(&path)
	if err != nil {
		call := root.Call(service+".CreateInterface", 0, map[string]interface{}{"Ifname": ifname})
		if call.Err != nil {
			return nil, fmt.Errorf("could not get or create interface %s: %w", ifname, call.Err)
		}
		if err := call.Store(&path); err != nil {
			return nil, fmt.Errorf("could not read interface path: %w", err)
		}
	}

	return &supplicantInterface{
		conn:   conn,
		obj:    conn.Object(service, path),
		ifname: ifname,
	}, nil
}

func (i *supplicantInterface) path() dbus.ObjectPath {
	return i.obj.Path()
}

// watch subscribes to the interface signals the platform consumes.
func (i *supplicantInterface) watch() error {
	for _, member := range []string{"PropertiesChanged", "ScanDone"} {
		err := i.conn.AddMatchSignal(
			dbus.WithMatchInterface(ifaceIntf),
			dbus.WithMatchMember(member),
			dbus.WithMatchObjectPath(i.path()),
		)
		if err != nil {
			return fmt.Errorf("could not add %s signal match: %w", member, err)
		}
	}
	return nil
}

func (i *supplicantInterface) unwatch() {
	for _, member := range []string{"PropertiesChanged", "ScanDone"} {
		_ = i.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(ifaceIntf),
			dbus.WithMatchMember(member),
			dbus.WithMatchObjectPath(i.path()),
		)
	}
}

func (i *supplicantInterface) scan() error {
	call := i.obj.Call(ifaceIntf+".Scan", 0, map[string]interface{}{
		"Type": "active",
	})
	if call.Err != nil {
		return fmt.Errorf("could not start scan: %w", call.Err)
	}
	return nil
}

func (i *supplicantInterface) state() (string, error) {
	v, err := i.obj.GetProperty(ifaceIntf + ".State")
	if err != nil {
		return "", fmt.Errorf("could not read state: %w", err)
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected state value %v", v)
	}
	return s, nil
}

func (i *supplicantInterface) bssProperties() ([]map[string]dbus.Variant, error) {
	v, err := i.obj.GetProperty(ifaceIntf + ".BSSs")
	if err != nil {
		return nil, fmt.Errorf("could not get BSSs: %w", err)
	}
	paths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("could not convert BSS list: %v", v)
	}

	all := make([]map[string]dbus.Variant, 0, len(paths))
	for _, p := range paths {
		call := i.conn.Object(service, p).Call(propertiesIntf+".GetAll", 0, bssIntf)
		if call.Err != nil {
			// BSS objects expire between listing and reading.
			continue
		}
		var props map[string]dbus.Variant
		if err := call.Store(&props); err != nil {
			continue
		}
		all = append(all, props)
	}
	return all, nil
}

func (i *supplicantInterface) addNetwork(args map[string]interface{}) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	err := i.obj.Call(ifaceIntf+".AddNetwork", 0, args).Store(&path)
	if err != nil {
		return "", fmt.Errorf("could not add network: %w", err)
	}
	return path, nil
}

func (i *supplicantInterface) selectNetwork(path dbus.ObjectPath) error {
	if call := i.obj.Call(ifaceIntf+".SelectNetwork", 0, path); call.Err != nil {
		return fmt.Errorf("could not select network: %w", call.Err)
	}
	return nil
}

func (i *supplicantInterface) removeAllNetworks() error {
	if call := i.obj.Call(ifaceIntf+".RemoveAllNetworks", 0); call.Err != nil {
		return fmt.Errorf("could not remove all networks: %w", call.Err)
	}
	return nil
}

func (i *supplicantInterface) disconnect() error {
	if call := i.obj.Call(ifaceIntf+".Disconnect", 0); call.Err != nil {
		return fmt.Errorf("could not disconnect: %w", call.Err)
	}
	return nil
}
