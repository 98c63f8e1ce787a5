package models

// Event bus topics for vehicle state changes.
const (
	TopicHeartbeatFound      = "vehicle.heartbeat.found"
	TopicHeartbeatLost       = "vehicle.heartbeat.lost"
	TopicArmChanged          = "vehicle.arm.changed"
	TopicSystemStatusChanged = "vehicle.status.changed"
)

// HeartbeatFound is published when contact with a vehicle is established.
type HeartbeatFound struct {
	SystemID uint8 `json:"system_id"`
}

// HeartbeatLost is published when contact with the tracked vehicle is lost.
type HeartbeatLost struct {
	SystemID uint8 `json:"system_id"`
}

// ArmChanged is published when the vehicle's derived armed state flips.
type ArmChanged struct {
	Armed bool `json:"armed"`
}

// SystemStatusChanged is published when the reported system status changes.
// A nil Status means the status is no longer known (contact lost).
type SystemStatusChanged struct {
	Status *uint8 `json:"status"`
}
