package services_test

import (
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/skyforge/telemetry-relay/internal/constants"
	"github.com/skyforge/telemetry-relay/internal/models"
	"github.com/skyforge/telemetry-relay/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTelemetryService_MQTTSource(t *testing.T) {
	mockClient := new(MockMQTTClient)
	sink := newRecordingSink()

	var handler MQTT.MessageHandler
	mockClient.On("Subscribe", "telemetry/raw", byte(1), mock.Anything).
		Run(func(args mock.Arguments) {
			handler = args.Get(2).(MQTT.MessageHandler)
		}).
		Return(newOkToken())
	mockClient.On("Unsubscribe", []string{"telemetry/raw"}).Return(newOkToken())

	svc := services.NewTelemetryService(
		constants.TelemetrySourceMQTT,
		"telemetry/raw",
		1,
		"", 0,
		mockClient,
		sink,
		zerolog.Nop(),
	)

	require.NoError(t, svc.Start())
	require.NotNil(t, handler)

	payload := []byte(`{"system_id":5,"vehicle_type":2,"autopilot":3,"base_mode":128,"custom_mode":4,"system_status":4}`)
	handler(nil, NewMockMessage("telemetry/raw", payload))

	select {
	case msg := <-sink.messages:
		assert.Equal(t, models.HeartbeatMessage{
			SystemID:     5,
			VehicleType:  2,
			Autopilot:    3,
			BaseMode:     128,
			CustomMode:   4,
			SystemStatus: 4,
		}, msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decoded heartbeat")
	}

	require.NoError(t, svc.Stop())
	mockClient.AssertExpectations(t)
}

func TestTelemetryService_MalformedFramesDropped(t *testing.T) {
	mockClient := new(MockMQTTClient)
	sink := newRecordingSink()

	var handler MQTT.MessageHandler
	mockClient.On("Subscribe", "telemetry/raw", byte(0), mock.Anything).
		Run(func(args mock.Arguments) {
			handler = args.Get(2).(MQTT.MessageHandler)
		}).
		Return(newOkToken())
	mockClient.On("Unsubscribe", []string{"telemetry/raw"}).Return(newOkToken())

	svc := services.NewTelemetryService(
		constants.TelemetrySourceMQTT,
		"telemetry/raw",
		0,
		"", 0,
		mockClient,
		sink,
		zerolog.Nop(),
	)

	require.NoError(t, svc.Start())

	handler(nil, NewMockMessage("telemetry/raw", []byte("not json")))

	select {
	case msg := <-sink.messages:
		t.Fatalf("malformed frame reached the sink: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, svc.Stop())
}

func TestTelemetryService_UnknownSource(t *testing.T) {
	svc := services.NewTelemetryService(
		"carrier-pigeon",
		"", 0, "", 0,
		new(MockMQTTClient),
		newRecordingSink(),
		zerolog.Nop(),
	)

	err := svc.Start()
	assert.Error(t, err)

	// A failed start leaves the service not running.
	err = svc.Stop()
	assert.Error(t, err)
	assert.Equal(t, "telemetry service is not running", err.Error())
}

func TestTelemetryService_StartTwice(t *testing.T) {
	mockClient := new(MockMQTTClient)

	mockClient.On("Subscribe", "telemetry/raw", byte(0), mock.Anything).Return(newOkToken())
	mockClient.On("Unsubscribe", []string{"telemetry/raw"}).Return(newOkToken())

	svc := services.NewTelemetryService(
		constants.TelemetrySourceMQTT,
		"telemetry/raw",
		0,
		"", 0,
		mockClient,
		newRecordingSink(),
		zerolog.Nop(),
	)

	require.NoError(t, svc.Start())

	err := svc.Start()
	assert.Error(t, err)
	assert.Equal(t, "telemetry service is already running", err.Error())

	require.NoError(t, svc.Stop())
}
