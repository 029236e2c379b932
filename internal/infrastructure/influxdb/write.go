package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteControlValue records a control value change.
//
// This is the primary telemetry write: every accepted value change on a
// slider or switch lands here. The write is non-blocking; data is
// batched and sent asynchronously.
//
// Parameters:
//   - controlID: Numeric control identifier
//   - controlType: Widget type ("slider", "switch", ...), tagged for querying
//   - value: The new value
//
// Example:
//
//	client.WriteControlValue(4, "slider", 75)
func (c *Client) WriteControlValue(controlID int, controlType string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"control_values",
		map[string]string{
			"control_id": strconv.Itoa(controlID),
			"type":       controlType,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
