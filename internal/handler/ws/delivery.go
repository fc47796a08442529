// Package ws is the WebSocket front door at /ws. Each socket runs a small
// dispatch state machine: Unauthenticated until a valid authenticate
// frame, then Authenticated with an optional event subscription mutated by
// subscribe_event/unsubscribe_event. Everything else is logged and
// ignored; only unparsable frames earn an error reply.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MaximallyHack/Maximally-Hack-sub003/config"
	"github.com/MaximallyHack/Maximally-Hack-sub003/infra/metrics"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/adapter/pubsub"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/domain/model"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/domain/registry"
	"github.com/MaximallyHack/Maximally-Hack-sub003/pkg/protocol"
)

type Handler struct {
	logger     *slog.Logger
	hub        registry.Hubber
	dispatcher pubsub.EventDispatcher
	tracer     trace.Tracer
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewHandler(logger *slog.Logger, hub registry.Hubber, dispatcher pubsub.EventDispatcher, cfg *config.Config) *Handler {
	return &Handler{
		logger:     logger,
		hub:        hub,
		dispatcher: dispatcher,
		tracer:     otel.Tracer("hack-realtime/ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy belongs to the reverse proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: cfg.Hub.SendBuffer,
	}
}

// connState tracks the dispatch state machine for one socket.
type connState struct {
	sess        *session
	connID      string // empty until authenticated
	userID      string
	isOrganizer bool
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}

	sess := newSession(socket, h.sendBuffer)
	go sess.writePump()

	state := &connState{sess: sess}
	defer h.teardown(state)

	h.logger.Info("ws opened", "remote", r.RemoteAddr)
	h.readPump(r.Context(), state)
}

// readPump consumes inbound frames until the socket closes or errors.
func (h *Handler) readPump(ctx context.Context, state *connState) {
	ws := state.sess.ws
	ws.SetReadLimit(maxFrameSize)
	ws.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws read failed", "conn_id", state.connID, "error", err)
			}
			return
		}
		h.dispatch(ctx, state, data)
	}
}

// dispatch routes one inbound control frame through the state machine.
func (h *Handler) dispatch(ctx context.Context, state *connState, data []byte) {
	var frame protocol.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		// Protocol error, not fatal: report and keep the socket open.
		h.logger.Warn("malformed frame", "conn_id", state.connID, "error", err)
		h.reply(state, &protocol.ServerFrame{
			Type:  protocol.TypeError,
			Error: protocol.ErrInvalidFormat,
		})
		return
	}

	ctx, span := h.tracer.Start(ctx, "ws.dispatch",
		trace.WithAttributes(attribute.String("frame.type", frame.Type)))
	defer span.End()

	switch frame.Type {
	case protocol.TypeAuthenticate:
		h.onAuthenticate(ctx, state, &frame)

	case protocol.TypeSubscribeEvent:
		if state.connID == "" {
			h.logger.Warn("subscribe before authenticate", "event_id", frame.EventID)
			return
		}
		h.hub.Subscribe(state.connID, frame.EventID)
		h.reply(state, &protocol.ServerFrame{
			Type:    protocol.TypeSubscribed,
			EventID: frame.EventID,
			Message: "Subscribed to event updates",
		})

	case protocol.TypeUnsubscribeEvent:
		if state.connID == "" {
			return
		}
		h.hub.Unsubscribe(state.connID, frame.EventID)
		h.reply(state, &protocol.ServerFrame{
			Type:    protocol.TypeUnsubscribed,
			EventID: frame.EventID,
			Message: "Unsubscribed from event updates",
		})

	default:
		// Unknown types are tolerated so old servers survive new clients.
		h.logger.Warn("unhandled message type", "type", frame.Type, "conn_id", state.connID)
	}
}

// onAuthenticate registers the connection. A repeated authenticate is
// tolerated by re-registering under a fresh id.
func (h *Handler) onAuthenticate(ctx context.Context, state *connState, frame *protocol.ClientFrame) {
	if state.connID != "" {
		h.hub.Remove(state.connID)
		metrics.ActiveConnections.WithLabelValues(role(state.isOrganizer)).Dec()
	}

	state.userID = frame.UserID
	state.isOrganizer = frame.IsOrganizer
	state.connID = h.hub.Register(state.sess, frame.UserID, frame.IsOrganizer)
	metrics.ActiveConnections.WithLabelValues(role(frame.IsOrganizer)).Inc()

	h.reply(state, &protocol.ServerFrame{
		Type:     protocol.TypeAuthenticated,
		ClientID: state.connID,
		Message:  "Authentication successful",
	})

	ev := model.NewPresenceEvent(model.PresenceConnected, state.userID, state.connID, state.isOrganizer)
	if err := h.dispatcher.Publish(ctx, ev); err != nil {
		h.logger.Warn("presence publish failed", "conn_id", state.connID, "error", err)
	}
}

// teardown runs when the socket closes or errors. No reply: the socket is
// already gone.
func (h *Handler) teardown(state *connState) {
	state.sess.Close()
	if state.connID == "" {
		return
	}

	h.hub.Remove(state.connID)
	metrics.ActiveConnections.WithLabelValues(role(state.isOrganizer)).Dec()
	h.logger.Info("ws closed", "conn_id", state.connID, "user_id", state.userID)

	// The request context is done by now; presence export gets its own.
	ev := model.NewPresenceEvent(model.PresenceDisconnected, state.userID, state.connID, state.isOrganizer)
	if err := h.dispatcher.Publish(context.Background(), ev); err != nil {
		h.logger.Warn("presence publish failed", "conn_id", state.connID, "error", err)
	}
}

func (h *Handler) reply(state *connState, frame *protocol.ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("reply marshal failed", "type", frame.Type, "error", err)
		return
	}
	if !state.sess.Send(data) {
		h.logger.Warn("reply dropped", "type", frame.Type, "conn_id", state.connID)
	}
}

func role(isOrganizer bool) string {
	if isOrganizer {
		return "organizer"
	}
	return "participant"
}
