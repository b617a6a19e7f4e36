// Package queue defines message payloads exchanged over the message broker.
package queue

// StationChangedEvent is published whenever a station is created, updated
// or deleted through the HTTP API. Consumers use it for audit logging;
// the realtime fan-out does not depend on the broker.
type StationChangedEvent struct {
	Action         string  `json:"action"` // created | updated | deleted
	StationID      string  `json:"station_id"`
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	AvailablePorts int     `json:"available_ports"`
	TotalPorts     int     `json:"total_ports"`
	ActorID        uint64  `json:"actor_id"` // admin user who made the change
	ChangedAt      string  `json:"changed_at"`
	PricePerKWh    float64 `json:"price_per_kwh"`
}
