// Package api serves the Breeze Core REST and WebSocket surface.
//
// It exposes fan state reads, commands and state history over REST,
// broadcasts state changes to WebSocket subscribers, and optionally
// requires a static bearer token. The middleware stack covers request
// IDs, logging, panic recovery, CORS and a request body cap, with TLS
// when certificates are configured.
//
// # Architecture
//
// The API server sits beside the MQTT fan bridge. Commands arriving over
// REST are dispatched synchronously to fan entities (which transmit IR/RF
// through their controllers), so a 200 response already carries the
// resulting snapshot. State changes published to the MQTT bus by the
// bridge are relayed to WebSocket clients on the "fan.state_changed"
// channel and written to InfluxDB telemetry.
//
// # Graceful Degradation
//
// The server operates without MQTT, InfluxDB, or the history store. The
// affected endpoints degrade (no WebSocket relay, no telemetry, 503 on
// history) while reads and commands keep working.
package api
