package constants

// Telemetry sources supported by the relay.
const (
	// TelemetrySourceMQTT reads heartbeat frames from an MQTT topic.
	TelemetrySourceMQTT = "mqtt"
	// TelemetrySourceSerial reads newline-delimited heartbeat frames from a
	// serial port.
	TelemetrySourceSerial = "serial"
)

const (
	// DefaultSerialBaudRate is used when the configuration omits a baud rate.
	DefaultSerialBaudRate = 57600
	// DefaultStatusInterval is the relay status publish interval in seconds,
	// used when the configuration omits one.
	DefaultStatusInterval = 10
)
