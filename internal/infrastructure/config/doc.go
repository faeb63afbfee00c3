// Package config loads, defaults, and validates the daemon's YAML
// configuration.
//
// Load reads one file, fills in defaults (including per-fan entry
// defaults such as speed counts and command delays), applies
// BREEZE_-prefixed environment overrides for the values that hold
// credentials, and then validates the lot. A config that fails
// validation never reaches the rest of the program.
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, fc := range cfg.Fans {
//	    fmt.Println(fc.UniqueID)
//	}
//
// Secrets belong in the environment rather than on disk; the file
// itself should be mode 0600 either way.
package config
