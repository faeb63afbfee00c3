// Package bridge connects the fan registry to the MQTT bus.
//
// The bridge is the broker-facing half of the service:
//
//   - Every fan state transition is published as retained JSON to
//     breeze/fan/<id>/state (the bridge is each entity's notifier).
//   - Per-fan availability is published to breeze/fan/<id>/availability at
//     startup and teardown.
//   - Commands arriving on breeze/fan/<id>/set are decoded and dispatched
//     to the matching entity.
//   - Power sensor topics are watched and their transitions fed into the
//     entities' power event handling.
//
// The MQTT client is consumed through a narrow interface so tests can run
// against an in-memory fake.
package bridge
