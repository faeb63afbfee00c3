// Package logging configures structured logging on top of log/slog.
//
// Output is JSON by default so log shippers can parse it; set format
// "text" in config.yaml for readable output while developing. Every entry
// carries service and version attributes, and components add their own
// context with With:
//
//	log := logging.New(cfg.Logging, version)
//	bridgeLog := log.With("component", "bridge")
//	bridgeLog.Info("sensor bound", "fan_id", "bedroom_fan_1080")
//
// Never log credentials: broker passwords, API tokens and the InfluxDB
// token all pass through config and must stay out of log output.
package logging
