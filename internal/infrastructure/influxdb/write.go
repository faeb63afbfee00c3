package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteFanMetric records one gauge sample for a fan, tagged by fan and
// metric name so Flux queries can group either way.
//
//	client.WriteFanMetric("bedroom_fan_1080", "percentage", 66)
//	client.WriteFanMetric("bedroom_fan_1080", "running", 1)
func (c *Client) WriteFanMetric(fanID, metric string, value float64) {
	c.writeAt("fan_metrics",
		map[string]string{"fan_id": fanID, "metric": metric},
		map[string]interface{}{"value": value},
		time.Now())
}

// WriteCommandMetric records one IR/RF dispatch: how long the controller
// took to transmit and whether it succeeded.
func (c *Client) WriteCommandMetric(fanID, command string, durationMs float64, success bool) {
	c.writeAt("fan_commands",
		map[string]string{"fan_id": fanID, "command": command},
		map[string]interface{}{"duration_ms": durationMs, "success": success},
		time.Now())
}

// WritePoint records a custom measurement stamped with the current time.
// Keep tags low-cardinality; field values carry the data.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.writeAt(measurement, tags, fields, time.Now())
}

// WritePointWithTime records a custom measurement with an explicit
// timestamp, for samples that did not originate now.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	c.writeAt(measurement, tags, fields, ts)
}

// writeAt queues one point on the non-blocking write API. Dropped silently
// when the client is closed; write failures surface on the error callback,
// never here.
func (c *Client) writeAt(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
