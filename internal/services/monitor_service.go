package services

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/skyforge/telemetry-relay/internal/constants"
	"github.com/skyforge/telemetry-relay/internal/eventbus"
	"github.com/skyforge/telemetry-relay/internal/models"
	"github.com/skyforge/telemetry-relay/internal/scheduler"
)

// Hooks are optional observer callbacks invoked from the monitor's own
// processing goroutine, after the corresponding bus event (if any) has been
// published. A nil hook falls back to logging only.
type Hooks struct {
	OnHeartbeatFound func(systemID uint8)
	OnHeartbeatLost  func(systemID uint8)
	OnModeChanged    func(customMode uint32, baseMode uint8, vehicleType uint8)
	OnArmChanged     func(armed bool)
	OnStatusChanged  func(status *uint8)
}

type inputKind int

const (
	inputHeartbeat inputKind = iota
	inputWatchdogExpired
	inputForceLost
)

// monitorInput is one item on the monitor's serialized processing stream.
type monitorInput struct {
	kind       inputKind
	message    models.HeartbeatMessage
	generation uint64
}

// inputQueueSize bounds pending inputs; at telemetry heartbeat rates the
// queue never gets near this deep unless the consumer is wedged.
const inputQueueSize = 64

// MonitorService tracks the liveness and operational state of a single
// vehicle from its heartbeat stream. All state transitions happen on one
// goroutine that drains a unified input channel of heartbeats, watchdog
// expiries and forced-loss commands, so no two handlers ever run
// concurrently. Loss of contact is declared when no heartbeat is accepted
// for constants.HeartbeatTimeout.
type MonitorService struct {
	bus       eventbus.Bus
	scheduler scheduler.Scheduler
	hooks     Hooks
	logger    zerolog.Logger

	// mu guards the fields below for the read accessors. Only the run
	// goroutine writes them.
	mu              sync.RWMutex
	trackedSystemID *uint8
	vehicleType     *uint8
	autopilot       *uint8
	baseMode        *uint8
	customMode      *uint32
	systemStatus    *uint8
	hasBeenArmed    bool

	// Watchdog bookkeeping, touched only by the run goroutine. The
	// generation counter makes an already-in-flight expiry from a
	// cancelled watchdog a detectable no-op.
	watchdog   scheduler.Handle
	generation uint64

	inputs chan monitorInput

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitorService initializes a new MonitorService. The bus and scheduler
// are required; hooks may be zero-valued.
func NewMonitorService(bus eventbus.Bus, sched scheduler.Scheduler, hooks Hooks, logger zerolog.Logger) *MonitorService {
	return &MonitorService{
		bus:       bus,
		scheduler: sched,
		hooks:     hooks,
		logger:    logger,
		inputs:    make(chan monitorInput, inputQueueSize),
	}
}

// Start launches the monitor's processing loop in a separate goroutine.
func (m *MonitorService) Start() error {
	if m.ctx != nil {
		m.logger.Warn().Msg("MonitorService is already running")
		return errors.New("monitor service is already running")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(m.ctx)
	}()

	m.logger.Info().Msg("MonitorService started successfully")
	return nil
}

// Stop gracefully stops the monitor, cancelling any outstanding watchdog.
// No events are published on shutdown.
func (m *MonitorService) Stop() error {
	if m.ctx == nil {
		m.logger.Warn().Msg("MonitorService is not running")
		return errors.New("monitor service is not running")
	}

	m.cancel()
	m.wg.Wait()

	m.ctx = nil
	m.cancel = nil

	m.logger.Info().Msg("MonitorService stopped successfully")
	return nil
}

// HandleMessage enqueues a decoded heartbeat for processing. It never
// blocks; if the input queue is full the heartbeat is dropped and liveness
// is re-evaluated on the next one.
func (m *MonitorService) HandleMessage(msg models.HeartbeatMessage) {
	m.enqueue(monitorInput{kind: inputHeartbeat, message: msg})
}

// ForceLost forces an immediate loss-of-contact transition, for callers
// that detect link loss through other means. Calling it while no vehicle is
// tracked is a no-op and publishes nothing.
func (m *MonitorService) ForceLost() {
	m.enqueue(monitorInput{kind: inputForceLost})
}

func (m *MonitorService) enqueue(in monitorInput) {
	select {
	case m.inputs <- in:
	default:
		m.logger.Warn().Int("kind", int(in.kind)).Msg("Monitor input queue full, dropping input")
	}
}

// run drains the input stream until the service is stopped.
func (m *MonitorService) run(ctx context.Context) {
	defer m.cancelWatchdog()

	for {
		select {
		case in := <-m.inputs:
			switch in.kind {
			case inputHeartbeat:
				m.handleHeartbeat(in.message)
			case inputWatchdogExpired:
				m.handleWatchdogExpiry(in.generation)
			case inputForceLost:
				m.loseContact()
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleHeartbeat applies one accepted heartbeat: updates the tracked
// state, re-arms the watchdog and raises edge-triggered change events by
// comparing pre- and post-update values.
func (m *MonitorService) handleHeartbeat(msg models.HeartbeatMessage) {
	if msg.VehicleType == constants.VehicleTypeGCS {
		// A ground station's heartbeat must never be mistaken for the
		// vehicle: no state change, no watchdog reset, no events.
		return
	}

	wasArmed := m.derivedArmed()
	oldCustomMode := m.customMode
	oldBaseMode := m.baseMode
	oldVehicleType := m.vehicleType
	oldStatus := m.systemStatus

	found := false

	m.mu.Lock()
	m.customMode = uint32Ptr(msg.CustomMode)
	m.baseMode = uint8Ptr(msg.BaseMode)
	m.autopilot = uint8Ptr(msg.Autopilot)
	m.systemStatus = uint8Ptr(msg.SystemStatus)
	m.vehicleType = uint8Ptr(msg.VehicleType)
	if m.trackedSystemID == nil {
		m.trackedSystemID = uint8Ptr(msg.SystemID)
		found = true
	}
	m.mu.Unlock()

	if found {
		m.logger.Info().
			Uint8("system_id", msg.SystemID).
			Uint8("vehicle_type", msg.VehicleType).
			Uint8("autopilot", msg.Autopilot).
			Msg("Heartbeat detected, vehicle in contact")
		m.bus.Publish(models.TopicHeartbeatFound, models.HeartbeatFound{SystemID: msg.SystemID})
		if m.hooks.OnHeartbeatFound != nil {
			m.hooks.OnHeartbeatFound(msg.SystemID)
		}
	}

	m.rearmWatchdog()

	modeChanged := !uint32PtrEqual(oldCustomMode, m.customMode) ||
		!uint8PtrEqual(oldVehicleType, m.vehicleType) ||
		!uint8PtrEqual(oldBaseMode, m.baseMode)
	if modeChanged {
		m.logger.Info().
			Uint32("custom_mode", msg.CustomMode).
			Uint8("base_mode", msg.BaseMode).
			Uint8("vehicle_type", msg.VehicleType).
			Msg("Vehicle mode changed")
		if m.hooks.OnModeChanged != nil {
			m.hooks.OnModeChanged(msg.CustomMode, msg.BaseMode, msg.VehicleType)
		}
	}

	armed := m.derivedArmed()
	if armed != wasArmed {
		if armed {
			m.mu.Lock()
			m.hasBeenArmed = true
			m.mu.Unlock()
		}
		m.logger.Info().Bool("armed", armed).Msg("Vehicle armed state changed")
		m.bus.Publish(models.TopicArmChanged, models.ArmChanged{Armed: armed})
		if m.hooks.OnArmChanged != nil {
			m.hooks.OnArmChanged(armed)
		}
	}

	if !uint8PtrEqual(oldStatus, m.systemStatus) {
		status := uint8Ptr(msg.SystemStatus)
		m.logger.Info().Uint8("system_status", msg.SystemStatus).Msg("Vehicle system status changed")
		m.bus.Publish(models.TopicSystemStatusChanged, models.SystemStatusChanged{Status: status})
		if m.hooks.OnStatusChanged != nil {
			m.hooks.OnStatusChanged(status)
		}
	}
}

// handleWatchdogExpiry acts on a watchdog wake-up. Expiries from a watchdog
// that has since been cancelled and replaced carry an older generation and
// are ignored, which collapses the cancel/reschedule race into a no-op.
func (m *MonitorService) handleWatchdogExpiry(generation uint64) {
	if generation != m.generation {
		m.logger.Debug().
			Uint64("generation", generation).
			Uint64("current", m.generation).
			Msg("Ignoring stale watchdog expiry")
		return
	}
	m.loseContact()
}

// loseContact performs the loss-of-contact transition. The last-known mode
// and type fields are intentionally kept so callers can inspect the last
// known configuration after loss; only the tracked id and system status are
// reset.
func (m *MonitorService) loseContact() {
	if m.trackedSystemID == nil {
		return
	}

	m.cancelWatchdog()
	systemID := *m.trackedSystemID

	m.mu.Lock()
	m.trackedSystemID = nil
	m.systemStatus = nil
	m.mu.Unlock()

	m.logger.Warn().Uint8("system_id", systemID).Msg("Heartbeat timed out, vehicle contact lost")
	m.bus.Publish(models.TopicHeartbeatLost, models.HeartbeatLost{SystemID: systemID})
	if m.hooks.OnHeartbeatLost != nil {
		m.hooks.OnHeartbeatLost(systemID)
	}

	// Status clearing is itself a reportable change, always emitted on loss.
	m.bus.Publish(models.TopicSystemStatusChanged, models.SystemStatusChanged{Status: nil})
	if m.hooks.OnStatusChanged != nil {
		m.hooks.OnStatusChanged(nil)
	}
}

// rearmWatchdog replaces the outstanding watchdog with a fresh one. Every
// accepted heartbeat lands here, so at most one watchdog is live at a time.
func (m *MonitorService) rearmWatchdog() {
	m.cancelWatchdog()
	m.generation++
	generation := m.generation
	m.watchdog = m.scheduler.Schedule(constants.HeartbeatTimeout, func() {
		m.enqueue(monitorInput{kind: inputWatchdogExpired, generation: generation})
	})
}

func (m *MonitorService) cancelWatchdog() {
	if m.watchdog != nil {
		m.watchdog.Cancel()
		m.watchdog = nil
	}
}

// derivedArmed derives the armed state from the last-known base mode.
// Unknown base mode reads as disarmed, not as unknown.
func (m *MonitorService) derivedArmed() bool {
	return m.baseMode != nil && *m.baseMode&constants.ModeFlagSafetyArmed != 0
}

// InContact reports whether a vehicle is currently being tracked.
func (m *MonitorService) InContact() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trackedSystemID != nil
}

// TrackedSystemID returns the tracked vehicle's system id, if any.
func (m *MonitorService) TrackedSystemID() (uint8, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.trackedSystemID == nil {
		return 0, false
	}
	return *m.trackedSystemID, true
}

// Armed reports the vehicle's current derived armed state.
func (m *MonitorService) Armed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseMode != nil && *m.baseMode&constants.ModeFlagSafetyArmed != 0
}

// HasBeenArmed reports whether the vehicle has ever been armed during this
// monitor's lifetime. Once set it is never cleared, not even on loss.
func (m *MonitorService) HasBeenArmed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasBeenArmed
}

func uint8Ptr(v uint8) *uint8 {
	return &v
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}

func uint8PtrEqual(a, b *uint8) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uint32PtrEqual(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
