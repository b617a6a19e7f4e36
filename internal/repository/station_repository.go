package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/model"
)

// StationQuery defines optional filters for listing stations.
type StationQuery struct {
	Status       string
	Network      string
	City         string
	MinAvailable int
}

// StationPatch carries the subset of station fields a PATCH may change.
// Nil pointers mean "leave the column untouched".
type StationPatch struct {
	Name           *string
	Address        *string
	City           *string
	Latitude       *float64
	Longitude      *float64
	TotalPorts     *int
	AvailablePorts *int
	Status         *string
	PricePerKWh    *float64
	Network        *string
}

// StationRepo provides CRUD access to the 'stations' table.
type StationRepo struct{ DB *sql.DB }

func NewStationRepo(db *sql.DB) *StationRepo { return &StationRepo{DB: db} }

const stationCols = "id,name,address,city,latitude,longitude,total_ports,available_ports,status,price_per_kwh,network,created_at,updated_at"

func scanStation(row interface{ Scan(...any) error }) (model.Station, error) {
	var s model.Station
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.City, &s.Latitude, &s.Longitude,
		&s.TotalPorts, &s.AvailablePorts, &s.Status, &s.PricePerKWh, &s.Network,
		&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a station and fills in its generated ID and timestamps.
func (r *StationRepo) Create(ctx context.Context, s *model.Station) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO stations ("+stationCols+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)",
		s.ID, s.Name, s.Address, s.City, s.Latitude, s.Longitude,
		s.TotalPorts, s.AvailablePorts, s.Status, s.PricePerKWh, s.Network,
		s.CreatedAt, s.UpdatedAt)
	return err
}

// GetByID fetches one station.
func (r *StationRepo) GetByID(ctx context.Context, id string) (model.Station, error) {
	s, err := scanStation(r.DB.QueryRowContext(ctx,
		"SELECT "+stationCols+" FROM stations WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.Station{}, ErrStationNotFound
	}
	return s, err
}

// List returns stations matching the query filters, newest first.
func (r *StationRepo) List(ctx context.Context, q StationQuery) ([]model.Station, error) {
	where := []string{}
	args := []any{}

	if q.Status != "" {
		where = append(where, "status=?")
		args = append(args, q.Status)
	}
	if q.Network != "" {
		where = append(where, "LOWER(network)=?")
		args = append(args, strings.ToLower(q.Network))
	}
	if q.City != "" {
		where = append(where, "LOWER(city)=?")
		args = append(args, strings.ToLower(q.City))
	}
	if q.MinAvailable > 0 {
		where = append(where, "available_ports>=?")
		args = append(args, q.MinAvailable)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+stationCols+" FROM stations WHERE "+cond+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Station{}
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// Update applies a partial patch and returns the updated record.
func (r *StationRepo) Update(ctx context.Context, id string, p StationPatch) (model.Station, error) {
	sets := []string{}
	args := []any{}

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s=?", col))
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Address != nil {
		add("address", *p.Address)
	}
	if p.City != nil {
		add("city", *p.City)
	}
	if p.Latitude != nil {
		add("latitude", *p.Latitude)
	}
	if p.Longitude != nil {
		add("longitude", *p.Longitude)
	}
	if p.TotalPorts != nil {
		add("total_ports", *p.TotalPorts)
	}
	if p.AvailablePorts != nil {
		add("available_ports", *p.AvailablePorts)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.PricePerKWh != nil {
		add("price_per_kwh", *p.PricePerKWh)
	}
	if p.Network != nil {
		add("network", *p.Network)
	}
	if len(sets) == 0 {
		// Nothing to change; return the current record.
		return r.GetByID(ctx, id)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx,
		"UPDATE stations SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
	if err != nil {
		return model.Station{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// RowsAffected can be zero for a no-op update of identical values,
		// so confirm existence before reporting not found.
		if _, err := r.GetByID(ctx, id); err != nil {
			return model.Station{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a station row.
func (r *StationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM stations WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStationNotFound
	}
	return nil
}
