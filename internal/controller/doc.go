// Package controller provides transports for delivering pre-recorded IR/RF
// command packets to a physical transmitter.
//
// A fan profile names its transmitter family in supportedController; the
// factory maps that name to one of three transports:
//
//   - MQTT: packets are published to the broker topic the transmitter
//     listens on (Tasmota, ESPHome and similar firmware).
//   - LOOKin: packets are sent to a LOOKin Remote device over its local
//     HTTP API.
//   - REST: packets are POSTed as JSON to an arbitrary HTTP endpoint, with
//     optional bearer authentication.
//
// Transports treat packets as opaque strings. Multi-packet payloads are
// transmitted in order with a configurable pause between consecutive
// packets; transmitters drop packets that arrive while the previous blast
// is still replaying. There are no retries: the caller decides what a
// failed transmission means.
package controller
