package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/domain/model"
	"github.com/MaximallyHack/Maximally-Hack-sub003/pkg/protocol"
)

// recordingHub captures broadcast calls instead of delivering them.
type recordingHub struct {
	eventCalls     []*protocol.Push
	organizerCalls []*protocol.Push
}

func (r *recordingHub) Register(model.Transport, string, bool) string { return "conn-1" }
func (r *recordingHub) Subscribe(string, string)                      {}
func (r *recordingHub) Unsubscribe(string, string)                    {}
func (r *recordingHub) Remove(string)                                 {}
func (r *recordingHub) Stats() model.HubStats                         { return model.HubStats{TotalConnections: 7} }

func (r *recordingHub) BroadcastToEvent(_ string, push *protocol.Push) {
	r.eventCalls = append(r.eventCalls, push)
}

func (r *recordingHub) BroadcastToEventOrganizers(_ string, push *protocol.Push) {
	r.organizerCalls = append(r.organizerCalls, push)
}

func newTestNotifier() (*NotifierService, *recordingHub) {
	hub := &recordingHub{}
	return NewNotifierService(hub, slog.New(slog.NewTextHandler(io.Discard, nil))), hub
}

func TestNotifier_KindRouting(t *testing.T) {
	tests := []struct {
		name          string
		send          func(n *NotifierService)
		wantKind      string
		organizerOnly bool
	}{
		{
			name:     "event update reaches all subscribers",
			send:     func(n *NotifierService) { n.SendEventUpdate("evt1", map[string]any{"phase": "judging"}) },
			wantKind: protocol.KindEventUpdate,
		},
		{
			name:          "participant joined is organizer-only",
			send:          func(n *NotifierService) { n.SendParticipantJoined("evt1", map[string]any{"name": "Ada"}) },
			wantKind:      protocol.KindParticipantJoined,
			organizerOnly: true,
		},
		{
			name:          "submission created is organizer-only",
			send:          func(n *NotifierService) { n.SendSubmissionCreated("evt1", nil) },
			wantKind:      protocol.KindSubmissionCreated,
			organizerOnly: true,
		},
		{
			name:          "judge activity is organizer-only",
			send:          func(n *NotifierService) { n.SendJudgeActivity("evt1", nil) },
			wantKind:      protocol.KindJudgeActivity,
			organizerOnly: true,
		},
		{
			name:          "analytics update is organizer-only",
			send:          func(n *NotifierService) { n.SendAnalyticsUpdate("evt1", nil) },
			wantKind:      protocol.KindAnalyticsUpdate,
			organizerOnly: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, hub := newTestNotifier()
			tt.send(n)

			var got *protocol.Push
			if tt.organizerOnly {
				require.Len(t, hub.organizerCalls, 1)
				require.Empty(t, hub.eventCalls)
				got = hub.organizerCalls[0]
			} else {
				require.Len(t, hub.eventCalls, 1)
				require.Empty(t, hub.organizerCalls)
				got = hub.eventCalls[0]
			}

			assert.Equal(t, tt.wantKind, got.Type)
			assert.Equal(t, "evt1", got.EventID)
		})
	}
}

func TestNotifier_TimestampSetAtSendTime(t *testing.T) {
	n, hub := newTestNotifier()

	before := time.Now().UTC().Add(-time.Second)
	n.SendEventUpdate("evt1", nil)
	after := time.Now().UTC().Add(time.Second)

	require.Len(t, hub.eventCalls, 1)
	ts, err := time.Parse(time.RFC3339, hub.eventCalls[0].Timestamp)
	require.NoError(t, err)
	assert.True(t, ts.After(before) && ts.Before(after), "timestamp %v outside send window", ts)
}

func TestNotifier_StatsPassthrough(t *testing.T) {
	n, _ := newTestNotifier()
	assert.Equal(t, 7, n.Stats().TotalConnections)
}
