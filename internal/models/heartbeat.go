package models

// HeartbeatMessage is a decoded vehicle heartbeat frame as delivered by the
// telemetry link. BaseMode is a bitmask; the safety-armed bit is defined in
// the constants package.
type HeartbeatMessage struct {
	SystemID     uint8  `json:"system_id"`
	VehicleType  uint8  `json:"vehicle_type"`
	Autopilot    uint8  `json:"autopilot"`
	BaseMode     uint8  `json:"base_mode"`
	CustomMode   uint32 `json:"custom_mode"`
	SystemStatus uint8  `json:"system_status"`
}
