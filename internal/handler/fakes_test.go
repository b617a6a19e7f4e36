package handler

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/model"
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/repository"
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/utils"
)

// fakeUserRepo is an in-memory UserStore.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint64]model.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	r.nextID++
	r.users[r.nextID] = model.User{
		ID: r.nextID, Email: email, PasswordHash: hash, Role: role,
		IsActive: true, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	return r.nextID, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (r *fakeUserRepo) setRole(id uint64, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.Role = role
	r.users[id] = u
}

type fakeTokenRow struct {
	userID    uint64
	family    string
	expiresAt time.Time
	revoked   bool
}

// fakeTokenRepo is an in-memory TokenStore with the same single-use
// claim semantics as the SQL implementation.
type fakeTokenRepo struct {
	mu   sync.Mutex
	rows map[string]*fakeTokenRow // by token hash
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{rows: map[string]*fakeTokenRow{}}
}

func (r *fakeTokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash, family string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[tokenHash] = &fakeTokenRow{userID: userID, family: family, expiresAt: exp}
	return nil
}

func (r *fakeTokenRepo) ClaimRefresh(ctx context.Context, tokenHash string) (uint64, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tokenHash]
	if !ok || row.revoked || time.Now().UTC().After(row.expiresAt) {
		return 0, "", repository.ErrTokenInvalid
	}
	row.revoked = true
	return row.userID, row.family, nil
}

func (r *fakeTokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[tokenHash]; ok {
		row.revoked = true
	}
	return nil
}

func (r *fakeTokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.userID == userID {
			row.revoked = true
		}
	}
	return nil
}

func (r *fakeTokenRepo) OwnerOfHash(ctx context.Context, tokenHash string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tokenHash]
	if !ok || row.revoked || time.Now().UTC().After(row.expiresAt) {
		return 0, repository.ErrTokenInvalid
	}
	return row.userID, nil
}

func (r *fakeTokenRepo) activeCount(userID uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.userID == userID && !row.revoked {
			n++
		}
	}
	return n
}

// fakeStationRepo is an in-memory StationStore.
type fakeStationRepo struct {
	mu       sync.Mutex
	stations map[string]model.Station
}

func newFakeStationRepo() *fakeStationRepo {
	return &fakeStationRepo{stations: map[string]model.Station{}}
}

func (r *fakeStationRepo) Create(ctx context.Context, s *model.Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.stations[s.ID] = *s
	return nil
}

func (r *fakeStationRepo) GetByID(ctx context.Context, id string) (model.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stations[id]
	if !ok {
		return model.Station{}, repository.ErrStationNotFound
	}
	return s, nil
}

func (r *fakeStationRepo) List(ctx context.Context, q repository.StationQuery) ([]model.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []model.Station{}
	for _, s := range r.stations {
		if q.Status != "" && s.Status != q.Status {
			continue
		}
		if q.Network != "" && !strings.EqualFold(s.Network, q.Network) {
			continue
		}
		if q.City != "" && !strings.EqualFold(s.City, q.City) {
			continue
		}
		if q.MinAvailable > 0 && s.AvailablePorts < q.MinAvailable {
			continue
		}
		items = append(items, s)
	}
	return items, nil
}

func (r *fakeStationRepo) Update(ctx context.Context, id string, p repository.StationPatch) (model.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stations[id]
	if !ok {
		return model.Station{}, repository.ErrStationNotFound
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.City != nil {
		s.City = *p.City
	}
	if p.Latitude != nil {
		s.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		s.Longitude = *p.Longitude
	}
	if p.TotalPorts != nil {
		s.TotalPorts = *p.TotalPorts
	}
	if p.AvailablePorts != nil {
		s.AvailablePorts = *p.AvailablePorts
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.PricePerKWh != nil {
		s.PricePerKWh = *p.PricePerKWh
	}
	if p.Network != nil {
		s.Network = *p.Network
	}
	s.UpdatedAt = time.Now().UTC()
	r.stations[id] = s
	return s, nil
}

func (r *fakeStationRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stations[id]; !ok {
		return repository.ErrStationNotFound
	}
	delete(r.stations, id)
	return nil
}

// recordingHub records published station updates.
type recordingHub struct {
	mu        sync.Mutex
	published []model.Station
}

func (h *recordingHub) Publish(stationID string, station model.Station) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.published = append(h.published, station)
}

func (h *recordingHub) all() []model.Station {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.Station, len(h.published))
	copy(out, h.published)
	return out
}
