package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/skyforge/telemetry-relay/internal/models"
	"github.com/skyforge/telemetry-relay/pkg/identity"
	"github.com/skyforge/telemetry-relay/pkg/mqtt"
)

// MonitorSnapshot exposes the monitor's queryable state to the status
// publisher.
type MonitorSnapshot interface {
	InContact() bool
	TrackedSystemID() (uint8, bool)
	Armed() bool
	HasBeenArmed() bool
}

// StatusService periodically publishes the relay's own health report:
// uptime, host utilization and a snapshot of the monitor's vehicle state.
type StatusService struct {
	pubTopic string
	interval time.Duration
	qos      int

	relayInfo  identity.RelayInfoInterface
	mqttClient mqtt.MQTTClient
	monitor    MonitorSnapshot
	logger     zerolog.Logger

	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStatusService initializes a new StatusService.
func NewStatusService(pubTopic string, interval time.Duration, qos int,
	relayInfo identity.RelayInfoInterface, mqttClient mqtt.MQTTClient,
	monitor MonitorSnapshot, logger zerolog.Logger) *StatusService {

	return &StatusService{
		pubTopic:   pubTopic,
		interval:   interval,
		qos:        qos,
		relayInfo:  relayInfo,
		mqttClient: mqttClient,
		monitor:    monitor,
		logger:     logger,
	}
}

// Start launches the status loop in a separate goroutine.
func (s *StatusService) Start() error {
	if s.ctx != nil {
		s.logger.Warn().Msg("StatusService is already running")
		return errors.New("status service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.startedAt = time.Now()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runStatusLoop(s.ctx)
	}()

	s.logger.Info().Str("topic", s.pubTopic).Msg("StatusService started successfully")
	return nil
}

// Stop gracefully stops the status service.
func (s *StatusService) Stop() error {
	if s.ctx == nil {
		s.logger.Warn().Msg("StatusService is not running")
		return errors.New("status service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.logger.Info().Msg("StatusService stopped successfully")
	return nil
}

// runStatusLoop publishes a status report at the configured interval.
func (s *StatusService) runStatusLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.publishStatus()

		case <-ctx.Done():
			s.logger.Info().Msg("StatusService stopping gracefully")
			return
		}
	}
}

// publishStatus assembles and publishes a single RelayStatus report.
func (s *StatusService) publishStatus() {
	status := models.RelayStatus{
		RelayID:       s.relayInfo.GetRelayID(),
		Timestamp:     time.Now(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		InContact:     s.monitor.InContact(),
		Armed:         s.monitor.Armed(),
		HasBeenArmed:  s.monitor.HasBeenArmed(),
	}
	if systemID, ok := s.monitor.TrackedSystemID(); ok {
		status.SystemID = &systemID
	}

	if percentages, err := cpu.Percent(0, false); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to collect CPU usage")
	} else if len(percentages) > 0 {
		status.CPUPercent = percentages[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to collect memory usage")
	} else {
		status.MemoryPercent = vm.UsedPercent
	}

	payload, err := json.Marshal(status)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to serialize status report")
		return
	}

	token := s.mqttClient.Publish(s.pubTopic, byte(s.qos), false, payload)
	token.Wait()

	if err := token.Error(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish status report")
	} else {
		s.logger.Debug().Msg("Status report published successfully")
	}
}
