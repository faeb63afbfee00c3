// Package influxdb stores Breeze time-series telemetry in InfluxDB v2.
//
// Two measurements matter: fan_metrics carries gauge samples (percentage,
// running, oscillating, direction_forward) written whenever fan state
// changes, and fan_commands carries one sample per IR/RF dispatch with its
// duration and outcome. Together they answer the operational questions a
// blaster-driven installation raises: is the fan actually being driven,
// and how reliable is the transmit path.
//
// Writes are batched and asynchronous. Nothing in the hot path blocks on
// the database; failed batches are reported through SetOnError. The whole
// integration is optional: when disabled in configuration, Connect returns
// ErrDisabled and the caller skips telemetry wiring entirely.
package influxdb
