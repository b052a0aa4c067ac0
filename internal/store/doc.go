// Package store persists Wi-Fi configuration in a single bbolt database.
//
// Layout (one bucket per concern, JSON values):
//
//	station/config        wifi.StationConfig
//	access_point/config   wifi.AccessPointConfig
//	ipinfo/{sta,ap}       wifi.IPInfo
//	settings/hostname     string
//	flags/{name}          bool
//
// Loads of absent keys return an error wrapping wifi.ErrConfigNotFound, which
// the connection manager treats as a normal outcome.
//
// # Usage Example
//
//	st, err := store.Open("/var/lib/wifictl/wifi.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	if reboot, _ := st.ConsumeFlag(store.FlagReboot); reboot {
//	    // start the access point
//	}
//
// # Thread Safety
//
// bbolt serializes writers and allows concurrent readers; a Store may be
// shared between goroutines. Only one process can hold the database open.
package store
