package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/skyforge/telemetry-relay/internal/eventbus"
	"github.com/skyforge/telemetry-relay/internal/models"
	"github.com/skyforge/telemetry-relay/pkg/mqtt"
)

// EventBridgeService republishes vehicle state-change events from the
// in-process bus to MQTT, so processes outside the relay can observe the
// vehicle. Delivery is fire-and-forget.
type EventBridgeService struct {
	topicPrefix string
	qos         int

	bus        eventbus.Bus
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger

	unsubscribes []func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// busRoutes maps bus topics to MQTT topic suffixes.
var busRoutes = map[string]string{
	models.TopicHeartbeatFound:      "found",
	models.TopicHeartbeatLost:       "lost",
	models.TopicArmChanged:          "armed",
	models.TopicSystemStatusChanged: "status",
}

// NewEventBridgeService initializes a new EventBridgeService.
func NewEventBridgeService(topicPrefix string, qos int, bus eventbus.Bus,
	mqttClient mqtt.MQTTClient, logger zerolog.Logger) *EventBridgeService {

	return &EventBridgeService{
		topicPrefix: topicPrefix,
		qos:         qos,
		bus:         bus,
		mqttClient:  mqttClient,
		logger:      logger,
	}
}

// Start subscribes to the bus and begins forwarding events.
func (e *EventBridgeService) Start() error {
	if e.ctx != nil {
		e.logger.Warn().Msg("EventBridgeService is already running")
		return errors.New("event bridge service is already running")
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())

	for busTopic, suffix := range busRoutes {
		ch, unsubscribe := e.bus.Subscribe(busTopic)
		e.unsubscribes = append(e.unsubscribes, unsubscribe)

		pubTopic := fmt.Sprintf("%s/%s", e.topicPrefix, suffix)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.forward(e.ctx, ch, pubTopic)
		}()
	}

	e.logger.Info().Str("topic_prefix", e.topicPrefix).Msg("EventBridgeService started successfully")
	return nil
}

// Stop detaches from the bus and waits for in-flight forwards to finish.
func (e *EventBridgeService) Stop() error {
	if e.ctx == nil {
		e.logger.Warn().Msg("EventBridgeService is not running")
		return errors.New("event bridge service is not running")
	}

	for _, unsubscribe := range e.unsubscribes {
		unsubscribe()
	}
	e.unsubscribes = nil

	e.cancel()
	e.wg.Wait()

	e.ctx = nil
	e.cancel = nil

	e.logger.Info().Msg("EventBridgeService stopped successfully")
	return nil
}

// forward drains one bus subscription into one MQTT topic.
func (e *EventBridgeService) forward(ctx context.Context, ch <-chan interface{}, topic string) {
	for {
		select {
		case event := <-ch:
			payload, err := json.Marshal(event)
			if err != nil {
				e.logger.Error().Err(err).Str("topic", topic).Msg("Failed to serialize event")
				continue
			}

			token := e.mqttClient.Publish(topic, byte(e.qos), false, payload)
			token.Wait()

			if err := token.Error(); err != nil {
				e.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish event")
			} else {
				e.logger.Debug().Str("topic", topic).Msg("Event published successfully")
			}

		case <-ctx.Done():
			return
		}
	}
}
