package constants

import "time"

// Heartbeat wire constants. The values come from the MAVLink common dialect
// and must stay in sync with the vehicle firmware.
const (
	// VehicleTypeGCS is the heartbeat type reported by a ground control
	// station. GCS heartbeats never count towards vehicle liveness.
	VehicleTypeGCS uint8 = 6

	// ModeFlagSafetyArmed is the base mode bit set while the vehicle's
	// safety is armed.
	ModeFlagSafetyArmed uint8 = 0x80
)

// HeartbeatTimeout is how long the monitor waits after the last accepted
// heartbeat before declaring loss of contact.
const HeartbeatTimeout = 30 * time.Second
