package model

import "time"

// Station status values.  A station is ACTIVE when it serves traffic,
// MAINTENANCE while under repair, and OFFLINE when unreachable.
const (
	StationActive      = "active"
	StationMaintenance = "maintenance"
	StationOffline     = "offline"
)

// ValidStationStatus reports whether s is one of the known status values.
func ValidStationStatus(s string) bool {
	switch s {
	case StationActive, StationMaintenance, StationOffline:
		return true
	}
	return false
}

// Station represents a charging station row in the `stations` table.
// Stations are identified by UUID strings so identifiers can be minted
// by the application rather than the database.  The json tags are used
// directly by handlers and by the realtime channel, which both serve
// the full record.
//
// Fields:
//  ID             – UUID of the station.
//  Name           – display name of the station.
//  Address        – street address.
//  City           – city name, used as a list filter.
//  Latitude       – WGS84 latitude.
//  Longitude      – WGS84 longitude.
//  TotalPorts     – number of charging ports installed.
//  AvailablePorts – number of ports currently free.
//  Status         – active | maintenance | offline.
//  PricePerKWh    – price in the local currency per kWh.
//  Network        – operator network tag (e.g. "ChargeGrid").
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Station struct {
	ID             string    `json:"id"`              // stations.id
	Name           string    `json:"name"`            // stations.name
	Address        string    `json:"address"`         // stations.address
	City           string    `json:"city"`            // stations.city
	Latitude       float64   `json:"latitude"`        // stations.latitude
	Longitude      float64   `json:"longitude"`       // stations.longitude
	TotalPorts     int       `json:"total_ports"`     // stations.total_ports
	AvailablePorts int       `json:"available_ports"` // stations.available_ports
	Status         string    `json:"status"`          // stations.status
	PricePerKWh    float64   `json:"price_per_kwh"`   // stations.price_per_kwh
	Network        string    `json:"network"`         // stations.network
	CreatedAt      time.Time `json:"created_at"`      // stations.created_at
	UpdatedAt      time.Time `json:"updated_at"`      // stations.updated_at
}
