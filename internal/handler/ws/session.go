package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MaximallyHack/Maximally-Hack-sub003/infra/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often ping frames go out. Must be less
	// than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 4096
)

// session owns one upgraded socket. It implements model.Transport: the
// registry enqueues frames into send and the write pump drains them, so a
// stalled client can never block a broadcast.
type session struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(ws *websocket.Conn, sendBuffer int) *session {
	return &session{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send enqueues one frame without blocking. False means the session is
// closed or its buffer is saturated; the frame is dropped either way.
func (s *session) Send(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- data:
		metrics.FramesDeliveredTotal.Inc()
		return true
	default:
		metrics.FramesDroppedTotal.Inc()
		return false
	}
}

// Close terminates the session. Idempotent: the registry, the read pump
// and app shutdown may all race to call it.
func (s *session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.ws.Close()
	})
}

// writePump drains send onto the socket and keeps the connection alive
// with pings. Runs in its own goroutine; the socket's writer side belongs
// exclusively to this loop.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			s.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			s.ws.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return

		case data := <-s.send:
			s.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
