// Package config loads and saves the wifid daemon configuration.
//
// The configuration is a YAML file holding the platform selection, the
// access point defaults used at boot, connection manager timeouts, the
// internet check and the portal listener. Fields absent from the file keep
// the values from Default.
//
// # Configuration File Location
//
// The default file is $XDG_CONFIG_HOME/wifictl/wifid.yaml, or
// $HOME/.config/wifictl/wifid.yaml when XDG_CONFIG_HOME is unset. The
// daemon's --config flag overrides it.
//
// # Security
//
// Station credentials entered through the portal are kept in the store at
// store_path, never in this file. The access point password is stored in
// plain text, so the file is written with mode 0600.
//
// # Usage Example
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg.Portal.Listen = ":8080"
//	if err := cfg.Save(path); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global configuration returned by Get is loaded once with sync.Once.
// Save is serialized by a mutex and replaces the file atomically.
package config
