package session

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/realtime"
)

const (
	reconnectBase = time.Second      // first retry delay
	reconnectMax  = 30 * time.Second // backoff ceiling
)

// Watcher follows one station's realtime channel. It dials the
// websocket endpoint, delivers snapshot/update frames to OnMessage, and
// reconnects with capped exponential backoff when the connection drops.
// Connection loss is never surfaced as an error; OnOnline reports the
// link state so a UI can show a "disconnected" indicator once retries
// pile up.
type Watcher struct {
	URL       string // full ws(s) URL including the station id
	OnMessage func(realtime.Message)
	OnOnline  func(online bool)

	attempts atomic.Int64
}

// Attempts reports how many consecutive reconnect attempts have failed.
// Resets to zero after a successful connect.
func (w *Watcher) Attempts() int {
	return int(w.attempts.Load())
}

// Run watches until ctx is cancelled. Every successful connect yields a
// fresh snapshot frame from the server, so no replay of missed updates
// is needed.
func (w *Watcher) Run(ctx context.Context) {
	delay := reconnectBase
	for {
		if err := w.connectOnce(ctx); err == nil {
			// Clean shutdown via ctx.
			return
		}
		if w.attempts.Load() == 0 {
			// The last dial succeeded before this drop; start the
			// backoff schedule over.
			delay = reconnectBase
		}
		w.attempts.Add(1)
		if w.OnOnline != nil {
			w.OnOnline(false)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay < reconnectMax {
			delay *= 2
			if delay > reconnectMax {
				delay = reconnectMax
			}
		}
	}
}

// connectOnce dials and reads frames until the connection dies or ctx is
// cancelled. It returns nil only for the ctx case; any connection error
// is returned so Run keeps retrying.
func (w *Watcher) connectOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	w.attempts.Store(0)
	if w.OnOnline != nil {
		w.OnOnline(true)
	}

	// Close the socket when ctx ends so the blocking read below returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	// The default ping handler answers server heartbeats with pongs; the
	// loop itself only sees data frames.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var msg realtime.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("watcher: dropping malformed frame: %v", err)
			continue
		}
		if w.OnMessage != nil {
			w.OnMessage(msg)
		}
	}
}
