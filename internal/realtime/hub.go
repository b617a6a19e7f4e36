// Package realtime implements the station-status fan-out: a registry of
// live connections keyed by station ID, fed by station mutations and
// drained by websocket clients. The registry is owned by a single
// goroutine; subscribe, unsubscribe and publish are delivered to it as
// messages, so no locking is needed around the maps.
package realtime

import (
	"context"
	"log"
	"time"

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/metrics"
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/model"
)

// Message is the JSON frame pushed to subscribed clients. Type is
// "snapshot" for the state sent right after subscribing and "update"
// for subsequent mutations.
type Message struct {
	Type    string        `json:"type"`
	Station model.Station `json:"station"`
}

// Conn is one live client connection. Implementations must be safe for
// Send/Ping calls from the hub goroutine while a reader runs elsewhere.
// A failed Send or Ping marks the connection dead; the hub closes and
// forgets it.
type Conn interface {
	Send(msg Message) error
	Ping() error
	Close() error
}

type subscribeCmd struct {
	conn      Conn
	stationID string
	snapshot  model.Station
}

type publishCmd struct {
	stationID string
	station   model.Station
}

type countReq struct {
	stationID string
	reply     chan int
}

// Hub owns the station -> connections registry.
type Hub struct {
	subscribeCh   chan subscribeCmd
	unsubscribeCh chan Conn
	publishCh     chan publishCmd
	countCh       chan countReq
	heartbeat     time.Duration
	metrics       *metrics.AppMetrics

	// owned by the run loop
	byStation map[string]map[Conn]struct{}
	byConn    map[Conn]string
}

// NewHub creates a hub that pings every connection each heartbeat
// interval. Metrics may be nil. Run must be started for the hub to
// process anything.
func NewHub(heartbeat time.Duration, m *metrics.AppMetrics) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		subscribeCh:   make(chan subscribeCmd),
		unsubscribeCh: make(chan Conn),
		publishCh:     make(chan publishCmd, 64),
		countCh:       make(chan countReq),
		heartbeat:     heartbeat,
		metrics:       m,
		byStation:     make(map[string]map[Conn]struct{}),
		byConn:        make(map[Conn]string),
	}
}

// Subscribe registers conn under stationID and sends it the snapshot as
// the first frame, closing the gap between connect and first push.
func (h *Hub) Subscribe(conn Conn, stationID string, snapshot model.Station) {
	h.subscribeCh <- subscribeCmd{conn: conn, stationID: stationID, snapshot: snapshot}
}

// Unsubscribe removes conn from whatever station it was registered
// under. Safe to call for connections the hub never saw or already
// pruned.
func (h *Hub) Unsubscribe(conn Conn) {
	h.unsubscribeCh <- conn
}

// Publish fans the new station state out to every subscriber of
// stationID. Delivery is best-effort: a dead connection is pruned and
// the broadcast continues.
func (h *Hub) Publish(stationID string, station model.Station) {
	h.publishCh <- publishCmd{stationID: stationID, station: station}
}

// Subscribers reports how many connections are registered for
// stationID. Used by tests and diagnostics.
func (h *Hub) Subscribers(stationID string) int {
	reply := make(chan int, 1)
	h.countCh <- countReq{stationID: stationID, reply: reply}
	return <-reply
}

// Run processes hub commands until ctx is cancelled. All registered
// connections are closed on the way out.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for conn := range h.byConn {
				h.drop(conn)
			}
			return

		case cmd := <-h.subscribeCh:
			if err := cmd.conn.Send(Message{Type: "snapshot", Station: cmd.snapshot}); err != nil {
				// Died between upgrade and registration; never register it.
				_ = cmd.conn.Close()
				continue
			}
			set, ok := h.byStation[cmd.stationID]
			if !ok {
				set = make(map[Conn]struct{})
				h.byStation[cmd.stationID] = set
			}
			set[cmd.conn] = struct{}{}
			h.byConn[cmd.conn] = cmd.stationID
			if h.metrics != nil {
				h.metrics.WSConnections.Inc()
			}

		case conn := <-h.unsubscribeCh:
			h.drop(conn)

		case cmd := <-h.publishCh:
			if h.metrics != nil {
				h.metrics.BroadcastTotal.Inc()
			}
			for conn := range h.byStation[cmd.stationID] {
				if err := conn.Send(Message{Type: "update", Station: cmd.station}); err != nil {
					log.Printf("realtime: dropping dead subscriber of station %s: %v", cmd.stationID, err)
					h.drop(conn)
					if h.metrics != nil {
						h.metrics.BroadcastDelivery.WithLabelValues("failed").Inc()
					}
					continue
				}
				if h.metrics != nil {
					h.metrics.BroadcastDelivery.WithLabelValues("ok").Inc()
				}
			}

		case <-ticker.C:
			// Liveness probe. Connections that cannot take a ping are
			// pruned here; connections that take the ping but never pong
			// fail their read deadline and unsubscribe themselves.
			for conn := range h.byConn {
				if err := conn.Ping(); err != nil {
					h.drop(conn)
				}
			}

		case req := <-h.countCh:
			req.reply <- len(h.byStation[req.stationID])
		}
	}
}

// drop removes a connection from both indexes and closes it. Must only
// be called from the run loop.
func (h *Hub) drop(conn Conn) {
	stationID, ok := h.byConn[conn]
	if !ok {
		return
	}
	delete(h.byConn, conn)
	if set, ok := h.byStation[stationID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.byStation, stationID)
		}
	}
	_ = conn.Close()
	if h.metrics != nil {
		h.metrics.WSConnections.Dec()
	}
}
