// Package influxdb is the optional telemetry sink for recorded device
// values.
//
// Every numeric value the resolver records under a device's values is
// written as one point of the device_value measurement:
//
//	device_value,device_id=<uuid>,quantity=<name>,unit=<unit> value=<float>
//
// Writes are batched by the client library according to
// influxdb.batch_size and influxdb.flush_interval and never block the
// caller. Asynchronous failures are reported through SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer client.Close()
//
//	client.WriteDeviceValue("abc", "temperature", "degC", 21.5, time.Now())
package influxdb
