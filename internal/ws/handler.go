package ws

import (
	"context"

	"go_library/internal/events"
	"go_library/internal/session"

	socketio "github.com/googollee/go-socket.io"
)

// handleRequestEvents replays the event log after lastEventId to one client
func (h *Hub) handleRequestEvents(s socketio.Conn, data interface{}) {
	p, ok := s.Context().(session.Principal)
	if !ok {
		s.Emit("error", map[string]interface{}{"message": "not authenticated"})
		return
	}

	f := events.Filter{Limit: events.MaxListLimit}
	if m, ok := data.(map[string]interface{}); ok {
		if id, ok := m["lastEventId"].(float64); ok {
			f.AfterID = int64(id)
		}
		if topic, ok := m["topic"].(string); ok {
			f.Topic = topic
		}
	}

	ctx := context.Background()
	items, err := h.eventLog.List(ctx, p, f)
	if err != nil {
		h.logger.WithError(err).WithField("conn", s.ID()).Warn("Failed to replay events")
		s.Emit("error", map[string]interface{}{"message": "failed to query events"})
		return
	}

	last := f.AfterID
	if n := len(items); n > 0 {
		last = items[n-1].ID
	} else if latest, err := h.eventLog.LatestID(ctx); err == nil && latest > last {
		last = latest
	}
	s.Emit(eventsName, map[string]interface{}{
		"items":       items,
		"lastEventId": last,
		"more":        len(items) == f.Limit,
	})
}
