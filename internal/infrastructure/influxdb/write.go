package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementDeviceValue holds every numeric value recorded for a device.
const MeasurementDeviceValue = "device_value"

// WriteDeviceValue records one numeric device reading, tagged by device,
// quantity and unit. An empty unit is left untagged.
//
//	client.WriteDeviceValue("abc", "temperature", "degC", 21.5, time.Now())
func (c *Client) WriteDeviceValue(deviceID, quantity, unit string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"device_id": deviceID,
		"quantity":  quantity,
	}
	if unit != "" {
		tags["unit"] = unit
	}

	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementDeviceValue,
		tags,
		map[string]any{"value": value},
		at,
	))
}
