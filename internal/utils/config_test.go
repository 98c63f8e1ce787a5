package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skyforge/telemetry-relay/internal/utils"
	"github.com/skyforge/telemetry-relay/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	configYAML := `
mqtt:
  broker: "tcp://broker:1883"
  client_id: "relay"

identity:
  relay_file: "relay.json"

telemetry:
  source: "serial"
  serial_port: "/dev/ttyUSB0"
  baud_rate: 57600

services:
  event_bridge:
    enabled: true
    topic_prefix: "telemetry/vehicle"
    qos: 1
  status:
    enabled: true
    topic: "telemetry/relay/status"
    interval: 10
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0600))

	config, err := utils.LoadConfig(path, file.NewFileService())
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", config.MQTT.Broker)
	assert.Equal(t, "relay", config.MQTT.ClientID)
	assert.Equal(t, "serial", config.Telemetry.Source)
	assert.Equal(t, "/dev/ttyUSB0", config.Telemetry.SerialPort)
	assert.Equal(t, 57600, config.Telemetry.BaudRate)
	assert.True(t, config.Services.EventBridge.Enabled)
	assert.Equal(t, "telemetry/vehicle", config.Services.EventBridge.TopicPrefix)
	assert.EqualValues(t, 10, config.Services.Status.Interval)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := utils.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), file.NewFileService())
	assert.Error(t, err)
}
