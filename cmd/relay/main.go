package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skyforge/telemetry-relay/internal/eventbus"
	"github.com/skyforge/telemetry-relay/internal/scheduler"
	"github.com/skyforge/telemetry-relay/internal/service_registry"
	"github.com/skyforge/telemetry-relay/internal/services"
	"github.com/skyforge/telemetry-relay/internal/utils"
	"github.com/skyforge/telemetry-relay/pkg/file"
	"github.com/skyforge/telemetry-relay/pkg/identity"
	"github.com/skyforge/telemetry-relay/pkg/mqtt"
)

func main() {
	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig("configs/config.yaml", fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	logger.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT Client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient)
	err = mqttClient.Initialize(config.MQTT.Broker, config.MQTT.ClientID, config.MQTT.CACertificate)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	// Load the relay identity
	relayInfo := identity.NewRelayInfo(config.Identity.RelayFile, fileClient)
	if err := relayInfo.LoadRelayInfo(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load relay identity")
	}

	// The bus and scheduler are shared by the monitor and its observers
	bus := eventbus.NewEventBus(logger)
	sched := scheduler.NewTimeScheduler()

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, bus, sched, logger)

	// Register services based on the configuration. Default hooks log only;
	// embedders wire their own callbacks here.
	if err := serviceRegistry.RegisterServices(config, relayInfo, services.Hooks{}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop some services")
	}
	mqttClient.Disconnect(250)
}
