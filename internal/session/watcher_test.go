package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/model"
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/realtime"
)

// wsServer is a minimal stand-in for the realtime endpoint. Each accepted
// connection immediately receives the queued frames and then stays open
// until the server closes it.
type wsServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	frames []realtime.Message
	conns  []*websocket.Conn
}

func newWSServer(t *testing.T, frames ...realtime.Message) *wsServer {
	t.Helper()
	s := &wsServer{frames: frames}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		frames := s.frames
		s.mu.Unlock()
		for _, f := range frames {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func TestWatcherDeliversFrames(t *testing.T) {
	snapshot := realtime.Message{Type: "snapshot", Station: model.Station{ID: "st-1", AvailablePorts: 3}}
	update := realtime.Message{Type: "update", Station: model.Station{ID: "st-1", AvailablePorts: 2}}
	srv := newWSServer(t, snapshot, update)

	got := make(chan realtime.Message, 8)
	w := &Watcher{
		URL:       srv.url(),
		OnMessage: func(m realtime.Message) { got <- m },
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	first := <-got
	assert.Equal(t, "snapshot", first.Type)
	assert.Equal(t, 3, first.Station.AvailablePorts)
	second := <-got
	assert.Equal(t, "update", second.Type)
	assert.Equal(t, 2, second.Station.AvailablePorts)
}

func TestWatcherReconnectsAfterDrop(t *testing.T) {
	snapshot := realtime.Message{Type: "snapshot", Station: model.Station{ID: "st-1"}}
	srv := newWSServer(t, snapshot)

	var mu sync.Mutex
	var transitions []bool
	got := make(chan realtime.Message, 8)
	w := &Watcher{
		URL:       srv.url(),
		OnMessage: func(m realtime.Message) { got <- m },
		OnOnline: func(online bool) {
			mu.Lock()
			transitions = append(transitions, online)
			mu.Unlock()
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// First connection delivers its snapshot, then the server kills it.
	<-got
	srv.dropAll()

	// The watcher redials on its own and receives a fresh snapshot.
	select {
	case m := <-got:
		assert.Equal(t, "snapshot", m.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reconnect")
	}
	assert.Equal(t, 0, w.Attempts(), "attempts reset after successful connect")

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(transitions), 3)
	assert.True(t, transitions[0], "initial connect reports online")
	assert.False(t, transitions[1], "drop reports offline")
	assert.True(t, transitions[len(transitions)-1], "reconnect reports online again")
}

func TestWatcherCountsFailedAttempts(t *testing.T) {
	// Point at a server that is already gone so every dial fails.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	w := &Watcher{URL: url}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool { return w.Attempts() >= 1 },
		3*time.Second, 10*time.Millisecond)
}

func TestWatcherStopsOnCancel(t *testing.T) {
	srv := newWSServer(t, realtime.Message{Type: "snapshot"})
	done := make(chan struct{})
	w := &Watcher{URL: srv.url()}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond) // let it connect
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
