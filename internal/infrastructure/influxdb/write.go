package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTemperature writes a zone temperature reading to InfluxDB.
//
// This is the primary method for recording the periodic temperature
// polls. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Parameters:
//   - zone: Zone number the sensor belongs to (1..255)
//   - celsius: Temperature in degrees Celsius
//
// Example:
//
//	client.WriteTemperature(12, 21.5)
func (c *Client) WriteTemperature(zone int, celsius float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"temperature",
		map[string]string{
			"zone": strconv.Itoa(zone),
		},
		map[string]interface{}{
			"celsius": celsius,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteStateCount records how many elements of a status fragment are
// active, e.g. the number of violated zones or armed partitions.
//
// Parameters:
//   - kind: Status fragment name (e.g. "zones_violated")
//   - active: Number of active elements
func (c *Client) WriteStateCount(kind string, active int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"panel_state",
		map[string]string{
			"kind": kind,
		},
		map[string]interface{}{
			"active": active,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("bridge_stats",
//	    map[string]string{"site": "site-001"},
//	    map[string]interface{}{"frames_rx": 1042, "timeouts": 2})
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
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
