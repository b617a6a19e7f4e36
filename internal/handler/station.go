package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/model"
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/queue"
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/repository"
	queue_publisher "github.com/varudhamalabinaya/EV-ChargingSpot/internal/service"
)

// StationStore is the persistence surface the station handlers need.
type StationStore interface {
	Create(ctx context.Context, s *model.Station) error
	GetByID(ctx context.Context, id string) (model.Station, error)
	List(ctx context.Context, q repository.StationQuery) ([]model.Station, error)
	Update(ctx context.Context, id string, p repository.StationPatch) (model.Station, error)
	Delete(ctx context.Context, id string) error
}

// Broadcaster pushes fresh station state to realtime subscribers.
type Broadcaster interface {
	Publish(stationID string, station model.Station)
}

// StationHandler implements the station directory CRUD surface.
// Mutations fan out to realtime subscribers before answering the HTTP
// request, and emit an audit event to the broker on a best-effort basis.
type StationHandler struct {
	Stations StationStore
	Hub      Broadcaster
	// PublishEvent is swappable in tests; defaults to the RabbitMQ publisher.
	PublishEvent func(ctx context.Context, ev queue.StationChangedEvent) error
}

func NewStationHandler(s StationStore, hub Broadcaster) *StationHandler {
	return &StationHandler{Stations: s, Hub: hub, PublishEvent: queue_publisher.PublishStationChanged}
}

type stationReq struct {
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	City           string  `json:"city"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	TotalPorts     int     `json:"total_ports"`
	AvailablePorts int     `json:"available_ports"`
	Status         string  `json:"status"`
	PricePerKWh    float64 `json:"price_per_kwh"`
	Network        string  `json:"network"`
}

type stationPatchReq struct {
	Name           *string  `json:"name"`
	Address        *string  `json:"address"`
	City           *string  `json:"city"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	TotalPorts     *int     `json:"total_ports"`
	AvailablePorts *int     `json:"available_ports"`
	Status         *string  `json:"status"`
	PricePerKWh    *float64 `json:"price_per_kwh"`
	Network        *string  `json:"network"`
}

// List handles GET /v1/stations with optional status/network/city/
// min_available filters. Reads are public.
func (h *StationHandler) List(c echo.Context) error {
	q := repository.StationQuery{
		Status:  strings.TrimSpace(c.QueryParam("status")),
		Network: strings.TrimSpace(c.QueryParam("network")),
		City:    strings.TrimSpace(c.QueryParam("city")),
	}
	if q.Status != "" && !model.ValidStationStatus(q.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	if v := c.QueryParam("min_available"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid min_available"})
		}
		q.MinAvailable = n
	}

	items, err := h.Stations.List(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Get handles GET /v1/stations/:id.
func (h *StationHandler) Get(c echo.Context) error {
	s, err := h.Stations.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if err == repository.ErrStationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, s)
}

// Create handles POST /v1/stations (admin only, enforced by middleware).
func (h *StationHandler) Create(c echo.Context) error {
	var req stationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Status == "" {
		req.Status = model.StationActive
	}
	if !model.ValidStationStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	if req.TotalPorts < 0 || req.AvailablePorts < 0 || req.AvailablePorts > req.TotalPorts {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid port counts"})
	}

	s := &model.Station{
		Name:           req.Name,
		Address:        req.Address,
		City:           req.City,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		TotalPorts:     req.TotalPorts,
		AvailablePorts: req.AvailablePorts,
		Status:         req.Status,
		PricePerKWh:    req.PricePerKWh,
		Network:        req.Network,
	}
	if err := h.Stations.Create(c.Request().Context(), s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create station"})
	}
	h.emitEvent(c, "created", *s)
	return c.JSON(http.StatusCreated, s)
}

// Update handles PATCH /v1/stations/:id (admin only). The updated state
// reaches realtime subscribers before the HTTP response is written.
func (h *StationHandler) Update(c echo.Context) error {
	var req stationPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Status != nil && !model.ValidStationStatus(*req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
	}

	patch := repository.StationPatch{
		Name:           req.Name,
		Address:        req.Address,
		City:           req.City,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		TotalPorts:     req.TotalPorts,
		AvailablePorts: req.AvailablePorts,
		Status:         req.Status,
		PricePerKWh:    req.PricePerKWh,
		Network:        req.Network,
	}
	s, err := h.Stations.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		if err == repository.ErrStationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if h.Hub != nil {
		h.Hub.Publish(s.ID, s)
	}
	h.emitEvent(c, "updated", s)
	return c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /v1/stations/:id (admin only). Subscribers of a
// deleted station are not notified; their next resnapshot sees the 404.
func (h *StationHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	s, err := h.Stations.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrStationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.Stations.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrStationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.emitEvent(c, "deleted", s)
	return c.NoContent(http.StatusNoContent)
}

// emitEvent publishes an audit event to the broker. Failures are logged
// and swallowed so broker trouble never fails a station mutation.
func (h *StationHandler) emitEvent(c echo.Context, action string, s model.Station) {
	if h.PublishEvent == nil {
		return
	}
	actorID, _ := c.Get("user_id").(uint64)
	ev := queue.StationChangedEvent{
		Action:         action,
		StationID:      s.ID,
		Name:           s.Name,
		Status:         s.Status,
		AvailablePorts: s.AvailablePorts,
		TotalPorts:     s.TotalPorts,
		ActorID:        actorID,
		ChangedAt:      time.Now().UTC().Format(time.RFC3339),
		PricePerKWh:    s.PricePerKWh,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.PublishEvent(ctx, ev); err != nil {
		log.Printf("station: publish %s event failed: %v", action, err)
	}
}
