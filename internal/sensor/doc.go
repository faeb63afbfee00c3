// Package sensor feeds external power readings into fan entities.
//
// IR/RF controlled fans are one-way devices: a command goes out and nothing
// comes back. A smart plug or power meter on the fan's circuit closes the
// loop by publishing its own on/off state over MQTT. This package
// normalises those payloads (bare values, JSON envelopes, firmware-specific
// casing) to a small state vocabulary and tracks per-topic transitions so
// each reading is delivered to the fan as an (old, new) pair.
//
// The watcher never interprets transitions itself: deduplication and the
// on-by-remote rules live in the fan entity.
package sensor
