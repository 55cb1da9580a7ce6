// Package ws pushes library events to Socket.IO clients.
package ws

import (
	"context"
	"fmt"
	"net/http"

	"go_library/internal/auth"
	"go_library/internal/events"
	"go_library/internal/model"
	"go_library/internal/session"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/sirupsen/logrus"
)

const (
	namespace  = "/"
	staffRoom  = "staff"
	eventName  = "library:event"
	eventsName = "library:events"
)

// Authenticator resolves a bearer token. session.Service satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (session.Principal, *auth.Claims, error)
}

// Hub owns the Socket.IO server and routes events to rooms
type Hub struct {
	server   *socketio.Server
	auth     Authenticator
	eventLog *events.Service
	logger   *logrus.Entry
}

// NewHub creates a Socket.IO hub. Call Serve to start its loop.
func NewHub(authn Authenticator, eventLog *events.Service, logger *logrus.Entry) *Hub {
	allowOrigin := func(r *http.Request) bool { return true }
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&polling.Transport{CheckOrigin: allowOrigin},
			&websocket.Transport{CheckOrigin: allowOrigin},
		},
	})

	h := &Hub{
		server:   server,
		auth:     authn,
		eventLog: eventLog,
		logger:   logger.WithField("component", "ws"),
	}

	server.OnConnect(namespace, h.onConnect)
	server.OnDisconnect(namespace, func(s socketio.Conn, reason string) {
		h.logger.WithFields(logrus.Fields{"conn": s.ID(), "reason": reason}).Debug("Client disconnected")
	})
	server.OnError(namespace, func(s socketio.Conn, e error) {
		if s == nil {
			h.logger.WithError(e).Warn("Socket.IO error")
			return
		}
		h.logger.WithError(e).WithField("conn", s.ID()).Warn("Socket.IO client error")
	})
	server.OnEvent(namespace, "request:events", h.handleRequestEvents)
	return h
}

// Serve runs the Socket.IO loop until ctx is done
func (h *Hub) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.server.Serve() }()
	h.logger.Info("Socket.IO server started")

	select {
	case <-ctx.Done():
		return h.server.Close()
	case err := <-errCh:
		return err
	}
}

// Broadcast sends evt to staff and to the member it concerns
func (h *Hub) Broadcast(evt model.LibraryEvent) {
	for _, room := range roomsFor(evt) {
		h.server.BroadcastToRoom(namespace, room, eventName, evt)
	}
}

func (h *Hub) onConnect(s socketio.Conn) error {
	token := tokenFromURL(s.URL())
	if token == "" {
		token = bearer(s.RemoteHeader().Get("Authorization"))
	}
	p, _, err := h.auth.Authenticate(context.Background(), token)
	if err != nil {
		h.logger.WithField("conn", s.ID()).Info("Socket.IO connection rejected")
		return err
	}

	s.SetContext(p)
	for _, room := range memberRooms(p) {
		s.Join(room)
	}
	s.Emit("connected", map[string]interface{}{"ok": true, "user": p})
	h.logger.WithFields(logrus.Fields{"conn": s.ID(), "user_id": p.ID}).Debug("Client connected")
	return nil
}

func userRoom(id int) string {
	return fmt.Sprintf("user:%d", id)
}

// memberRooms are the rooms a connection joins
func memberRooms(p session.Principal) []string {
	if p.IsStaff() {
		return []string{staffRoom, userRoom(p.ID)}
	}
	return []string{userRoom(p.ID)}
}

// roomsFor are the rooms an event is delivered to
func roomsFor(evt model.LibraryEvent) []string {
	rooms := []string{staffRoom}
	if evt.UserID != 0 {
		rooms = append(rooms, userRoom(evt.UserID))
	}
	return rooms
}
