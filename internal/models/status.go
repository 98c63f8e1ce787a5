package models

import "time"

// RelayStatus is the relay's own periodic health report, published so the
// backend can tell a silent vehicle apart from a dead relay.
type RelayStatus struct {
	RelayID       string    `json:"relay_id"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	InContact     bool      `json:"in_contact"`
	SystemID      *uint8    `json:"system_id,omitempty"`
	Armed         bool      `json:"armed"`
	HasBeenArmed  bool      `json:"has_been_armed"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
}
