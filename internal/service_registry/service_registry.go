package service_registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/skyforge/telemetry-relay/internal/constants"
	"github.com/skyforge/telemetry-relay/internal/eventbus"
	"github.com/skyforge/telemetry-relay/internal/registry"
	"github.com/skyforge/telemetry-relay/internal/scheduler"
	"github.com/skyforge/telemetry-relay/internal/services"
	"github.com/skyforge/telemetry-relay/internal/utils"
	"github.com/skyforge/telemetry-relay/pkg/identity"
	"github.com/skyforge/telemetry-relay/pkg/mqtt"
)

// ServiceRegistry manages the lifecycle of the relay's services.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	bus         eventbus.Bus
	scheduler   scheduler.Scheduler
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, bus eventbus.Bus,
	sched scheduler.Scheduler, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]registry.Service),
		mqttClient: mqttClient,
		bus:        bus,
		scheduler:  sched,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers services based on configuration.
// The monitor and its telemetry feed are the core of the relay and are
// always registered; the bridge and status publisher follow configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, relayInfo identity.RelayInfoInterface, hooks services.Hooks) error {
	monitor := services.NewMonitorService(sr.bus, sr.scheduler, hooks, sr.Logger)

	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "monitor",
			enabled: true,
			constructor: func() (registry.Service, error) {
				return monitor, nil
			},
		},
		{
			name:    "event_bridge",
			enabled: config.Services.EventBridge.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewEventBridgeService(
					config.Services.EventBridge.TopicPrefix,
					config.Services.EventBridge.QOS,
					sr.bus,
					sr.mqttClient,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "telemetry",
			enabled: true,
			constructor: func() (registry.Service, error) {
				return services.NewTelemetryService(
					config.Telemetry.Source,
					config.Telemetry.Topic,
					config.Telemetry.QOS,
					config.Telemetry.SerialPort,
					config.Telemetry.BaudRate,
					sr.mqttClient,
					monitor,
					sr.Logger,
				), nil
			},
		},
		{
			name:    "status",
			enabled: config.Services.Status.Enabled,
			constructor: func() (registry.Service, error) {
				interval := config.Services.Status.Interval
				if interval == 0 {
					interval = constants.DefaultStatusInterval
				}
				return services.NewStatusService(
					config.Services.Status.Topic,
					time.Duration(interval)*time.Second,
					config.Services.Status.QOS,
					relayInfo,
					sr.mqttClient,
					monitor,
					sr.Logger,
				), nil
			},
		},
	}

	// Register services in the predefined order. The event bridge comes
	// before the telemetry feed so no state change event is published
	// without a forwarder attached.
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}
