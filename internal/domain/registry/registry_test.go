package registry

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaximallyHack/Maximally-Hack-sub003/pkg/protocol"
)

type mockTransport struct {
	mu       sync.Mutex
	received [][]byte
	closed   bool
	refuse   bool
}

func (m *mockTransport) Send(data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refuse || m.closed {
		return false
	}
	m.received = append(m.received, data)
	return true
}

func (m *mockTransport) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockTransport) pushes(t *testing.T) []*protocol.Push {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*protocol.Push, 0, len(m.received))
	for _, data := range m.received {
		var p protocol.Push
		require.NoError(t, json.Unmarshal(data, &p))
		out = append(out, &p)
	}
	return out
}

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func push(kind, eventID string) *protocol.Push {
	return &protocol.Push{Type: kind, EventID: eventID, Data: map[string]any{"k": "v"}, Timestamp: "2026-09-01T10:00:00Z"}
}

func TestHub_RegisterRemove(t *testing.T) {
	h := newTestHub()

	before := h.Stats().TotalConnections
	id := h.Register(&mockTransport{}, "u1", false)
	require.NotEmpty(t, id)
	assert.Equal(t, before+1, h.Stats().TotalConnections)

	h.Remove(id)
	assert.Equal(t, before, h.Stats().TotalConnections)

	// Removing an absent id must be safe.
	h.Remove(id)
	h.Remove("never-registered")
	assert.Equal(t, before, h.Stats().TotalConnections)
}

func TestHub_RegisterIDsNotReused(t *testing.T) {
	h := newTestHub()

	id1 := h.Register(&mockTransport{}, "u1", false)
	h.Remove(id1)
	id2 := h.Register(&mockTransport{}, "u1", false)

	assert.NotEqual(t, id1, id2)
}

func TestHub_BroadcastToEvent(t *testing.T) {
	tests := []struct {
		name        string
		subscribeTo string
		broadcastTo string
		wantFrames  int
	}{
		{"delivers to subscriber", "evt1", "evt1", 1},
		{"skips other event", "evt1", "evt2", 0},
		{"skips unsubscribed", "", "evt1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub()
			tr := &mockTransport{}
			id := h.Register(tr, "u1", false)
			if tt.subscribeTo != "" {
				h.Subscribe(id, tt.subscribeTo)
			}

			h.BroadcastToEvent(tt.broadcastTo, push(protocol.KindEventUpdate, tt.broadcastTo))

			assert.Len(t, tr.pushes(t), tt.wantFrames)
		})
	}
}

func TestHub_SubscribeReplacesPrior(t *testing.T) {
	h := newTestHub()
	tr := &mockTransport{}
	id := h.Register(tr, "u1", false)

	h.Subscribe(id, "evt1")
	h.Subscribe(id, "evt2")

	h.BroadcastToEvent("evt1", push(protocol.KindEventUpdate, "evt1"))
	h.BroadcastToEvent("evt2", push(protocol.KindEventUpdate, "evt2"))

	msgs := tr.pushes(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, "evt2", msgs[0].EventID)
}

func TestHub_Unsubscribe(t *testing.T) {
	t.Run("clears matching subscription", func(t *testing.T) {
		h := newTestHub()
		tr := &mockTransport{}
		id := h.Register(tr, "u1", false)
		h.Subscribe(id, "evt1")

		h.Unsubscribe(id, "evt1")
		h.BroadcastToEvent("evt1", push(protocol.KindEventUpdate, "evt1"))

		assert.Empty(t, tr.pushes(t))
	})

	t.Run("stale unsubscribe is a no-op after resubscribe", func(t *testing.T) {
		h := newTestHub()
		tr := &mockTransport{}
		id := h.Register(tr, "u1", false)
		h.Subscribe(id, "evt2")

		// A late unsubscribe for the old event must not clobber evt2.
		h.Unsubscribe(id, "evt1")
		h.BroadcastToEvent("evt2", push(protocol.KindEventUpdate, "evt2"))

		assert.Len(t, tr.pushes(t), 1)
	})
}

func TestHub_BroadcastToEventOrganizers(t *testing.T) {
	h := newTestHub()

	globalOrganizer := &mockTransport{}
	h.Register(globalOrganizer, "org-global", true)

	subscribedOrganizer := &mockTransport{}
	subID := h.Register(subscribedOrganizer, "org-sub", true)
	h.Subscribe(subID, "evt1")

	otherEventOrganizer := &mockTransport{}
	otherID := h.Register(otherEventOrganizer, "org-other", true)
	h.Subscribe(otherID, "evt2")

	participant := &mockTransport{}
	partID := h.Register(participant, "u1", false)
	h.Subscribe(partID, "evt1")

	h.BroadcastToEventOrganizers("evt1", push(protocol.KindParticipantJoined, "evt1"))

	assert.Len(t, globalOrganizer.pushes(t), 1, "unsubscribed organizer gets the global feed")
	assert.Len(t, subscribedOrganizer.pushes(t), 1)
	assert.Empty(t, otherEventOrganizer.pushes(t), "organizer on another event excluded")
	assert.Empty(t, participant.pushes(t), "participants never get organizer kinds")
}

func TestHub_BroadcastSkipsRefusingTransport(t *testing.T) {
	h := newTestHub()
	stalled := &mockTransport{refuse: true}
	healthy := &mockTransport{}

	id1 := h.Register(stalled, "u1", false)
	id2 := h.Register(healthy, "u2", false)
	h.Subscribe(id1, "evt1")
	h.Subscribe(id2, "evt1")

	h.BroadcastToEvent("evt1", push(protocol.KindEventUpdate, "evt1"))

	// One stalled client must not abort delivery to the rest.
	assert.Len(t, healthy.pushes(t), 1)
}

func TestHub_Stats(t *testing.T) {
	h := newTestHub()
	h.Register(&mockTransport{}, "org", true)
	h.Register(&mockTransport{}, "u1", false)
	h.Register(&mockTransport{}, "u2", false)

	stats := h.Stats()
	assert.Equal(t, 3, stats.TotalConnections)
	assert.Equal(t, 1, stats.Organizers)
	assert.Equal(t, 2, stats.Participants)
}

func TestHub_ShutdownClosesTransports(t *testing.T) {
	h := newTestHub()
	tr := &mockTransport{}
	h.Register(tr, "u1", false)

	h.Shutdown()

	assert.True(t, tr.closed)
	assert.Zero(t, h.Stats().TotalConnections)
}
