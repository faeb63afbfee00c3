// Package mqtt wraps the Eclipse Paho client with the conventions the
// rest of Breeze relies on: subscriptions that survive reconnects, a
// retained last-will status pair, panic-safe handler dispatch and bounded
// timeouts on every broker round trip.
//
// MQTT is both the transport to IR/RF blaster hardware and the state bus
// other systems consume. Fan state is published retained on
// breeze/fan/<id>/state so late subscribers always see the current
// snapshot; commands arrive on breeze/fan/<id>/set. The daemon's own
// liveness is mirrored on breeze/system/status: "online" on every
// connect, "graceful_shutdown" from Close, "unexpected_disconnect" via
// the broker's LWT when the process dies.
//
// Build topics with the Topics helper rather than string literals so the
// namespace stays in one place:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllFanSets(), 1, handleCommand)
package mqtt
