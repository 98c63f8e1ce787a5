package utils

import (
	"time"

	"github.com/skyforge/telemetry-relay/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate (optional)
	} `yaml:"mqtt"`

	Identity struct {
		RelayFile string `yaml:"relay_file"` // Path to the relay identity file
	} `yaml:"identity"`

	Telemetry struct {
		Source     string `yaml:"source"`      // Heartbeat source: "mqtt" or "serial"
		Topic      string `yaml:"topic"`       // MQTT topic carrying raw heartbeat frames
		QOS        int    `yaml:"qos"`         // MQTT QoS level for the heartbeat topic
		SerialPort string `yaml:"serial_port"` // Serial device carrying heartbeat frames
		BaudRate   int    `yaml:"baud_rate"`   // Baud rate of the serial link
	} `yaml:"telemetry"`

	Services struct {
		EventBridge struct {
			Enabled     bool   `yaml:"enabled"`      // Enable/disable republishing of vehicle events
			TopicPrefix string `yaml:"topic_prefix"` // MQTT topic prefix for vehicle events
			QOS         int    `yaml:"qos"`          // MQTT QoS level for vehicle events
		} `yaml:"event_bridge"`

		Status struct {
			Enabled  bool          `yaml:"enabled"`  // Enable/disable relay status reports
			Topic    string        `yaml:"topic"`    // MQTT topic for relay status reports
			Interval time.Duration `yaml:"interval"` // Interval between status reports (in seconds)
			QOS      int           `yaml:"qos"`      // MQTT QoS level for status reports
		} `yaml:"status"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file.
// It returns a pointer to the Config struct and an error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
