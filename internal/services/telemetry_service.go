package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/skyforge/telemetry-relay/internal/constants"
	"github.com/skyforge/telemetry-relay/internal/models"
	"github.com/skyforge/telemetry-relay/pkg/mqtt"
	"github.com/tarm/serial"
)

// HeartbeatSink consumes decoded heartbeat frames.
type HeartbeatSink interface {
	HandleMessage(msg models.HeartbeatMessage)
}

// TelemetryService decodes heartbeat frames off the telemetry link and
// feeds them to the monitor. The link is either an MQTT topic or a serial
// port carrying newline-delimited JSON frames. Malformed frames are dropped;
// this is a best-effort liveness feed, not a protocol validator.
type TelemetryService struct {
	source     string
	subTopic   string
	qos        int
	serialPort string
	baudRate   int

	mqttClient mqtt.MQTTClient
	sink       HeartbeatSink
	logger     zerolog.Logger

	port *serial.Port

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTelemetryService initializes a new TelemetryService.
func NewTelemetryService(source, subTopic string, qos int, serialPort string, baudRate int,
	mqttClient mqtt.MQTTClient, sink HeartbeatSink, logger zerolog.Logger) *TelemetryService {

	if baudRate == 0 {
		baudRate = constants.DefaultSerialBaudRate
	}

	return &TelemetryService{
		source:     source,
		subTopic:   subTopic,
		qos:        qos,
		serialPort: serialPort,
		baudRate:   baudRate,
		mqttClient: mqttClient,
		sink:       sink,
		logger:     logger,
	}
}

// Start opens the configured telemetry source and begins feeding the sink.
func (t *TelemetryService) Start() error {
	if t.ctx != nil {
		t.logger.Warn().Msg("TelemetryService is already running")
		return errors.New("telemetry service is already running")
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())

	switch t.source {
	case constants.TelemetrySourceMQTT:
		if err := t.startMQTT(); err != nil {
			t.ctx, t.cancel = nil, nil
			return err
		}
	case constants.TelemetrySourceSerial:
		if err := t.startSerial(); err != nil {
			t.ctx, t.cancel = nil, nil
			return err
		}
	default:
		t.ctx, t.cancel = nil, nil
		return fmt.Errorf("unknown telemetry source: %q", t.source)
	}

	t.logger.Info().Str("source", t.source).Msg("TelemetryService started successfully")
	return nil
}

// Stop closes the telemetry source and waits for the read loop to exit.
func (t *TelemetryService) Stop() error {
	if t.ctx == nil {
		t.logger.Warn().Msg("TelemetryService is not running")
		return errors.New("telemetry service is not running")
	}

	t.cancel()

	if t.source == constants.TelemetrySourceMQTT {
		token := t.mqttClient.Unsubscribe(t.subTopic)
		token.Wait()
		if err := token.Error(); err != nil {
			t.logger.Error().Err(err).Str("topic", t.subTopic).Msg("Failed to unsubscribe from telemetry topic")
		}
	}

	if t.port != nil {
		// Unblocks the scanner goroutine.
		t.port.Close()
		t.port = nil
	}

	t.wg.Wait()

	t.ctx = nil
	t.cancel = nil

	t.logger.Info().Msg("TelemetryService stopped successfully")
	return nil
}

// startMQTT subscribes to the raw heartbeat topic.
func (t *TelemetryService) startMQTT() error {
	t.logger.Info().Str("topic", t.subTopic).Msg("Subscribing to telemetry topic")
	token := t.mqttClient.Subscribe(t.subTopic, byte(t.qos), t.handleMQTTMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		t.logger.Error().Err(err).Str("topic", t.subTopic).Msg("Failed to subscribe to telemetry topic")
		return err
	}
	return nil
}

// handleMQTTMessage decodes one heartbeat payload from the broker.
func (t *TelemetryService) handleMQTTMessage(client MQTT.Client, msg MQTT.Message) {
	t.decodeFrame(msg.Payload())
}

// startSerial opens the serial port and launches the read loop.
func (t *TelemetryService) startSerial() error {
	port, err := serial.OpenPort(&serial.Config{Name: t.serialPort, Baud: t.baudRate})
	if err != nil {
		t.logger.Error().Err(err).Str("port", t.serialPort).Msg("Failed to open serial port")
		return err
	}
	t.port = port

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.runSerialLoop(t.ctx, port)
	}()

	t.logger.Info().Str("port", t.serialPort).Int("baud_rate", t.baudRate).Msg("Serial telemetry link opened")
	return nil
}

// runSerialLoop reads newline-delimited heartbeat frames until the port is
// closed.
func (t *TelemetryService) runSerialLoop(ctx context.Context, port *serial.Port) {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		t.decodeFrame(line)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		t.logger.Error().Err(err).Msg("Serial telemetry read failed")
	}
}

// decodeFrame unmarshals a heartbeat frame and hands it to the sink.
// Unrecognized frames are logged and ignored.
func (t *TelemetryService) decodeFrame(payload []byte) {
	var msg models.HeartbeatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.logger.Debug().Err(err).Msg("Dropping malformed heartbeat frame")
		return
	}

	t.logger.Debug().Uint8("system_id", msg.SystemID).Msg("Heartbeat frame received")
	t.sink.HandleMessage(msg)
}
