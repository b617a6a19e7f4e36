package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/realtime"
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/repository"
)

// RealtimeHandler upgrades station-watch requests to websocket
// connections and hands them to the hub.
type RealtimeHandler struct {
	Hub      *realtime.Hub
	Stations StationStore
	hb       time.Duration
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(hub *realtime.Hub, s StationStore, heartbeat time.Duration) *RealtimeHandler {
	return &RealtimeHandler{
		Hub:      hub,
		Stations: s,
		hb:       heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the SPA origin; auth is not
			// required to watch a public station, so all origins pass.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Watch handles GET /realtime/ws/station/:id. The current station state
// is fetched before the upgrade so an unknown station answers a plain
// 404 instead of a dangling socket; the same state becomes the snapshot
// frame the hub sends on subscribe.
func (h *RealtimeHandler) Watch(c echo.Context) error {
	stationID := c.Param("id")

	snapshot, err := h.Stations.GetByID(c.Request().Context(), stationID)
	if err != nil {
		if err == repository.ErrStationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote its error response.
		return nil
	}

	conn := realtime.NewWSConn(ws, h.hb)
	h.Hub.Subscribe(conn, stationID, snapshot)

	// Block on the read loop: it returns when the client closes, the
	// network drops, or a missed heartbeat expires the read deadline.
	conn.ReadLoop()
	h.Hub.Unsubscribe(conn)
	return nil
}
