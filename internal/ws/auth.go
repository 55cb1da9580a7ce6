package ws

import (
	"net/http"
	"net/url"
	"strings"
)

// Handler wraps the Socket.IO server so handshakes without a valid token are refused up front
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only the handshake carries no sid yet
		if r.Method == http.MethodGet && r.URL.Query().Get("sid") == "" {
			token := extractToken(r)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if _, _, err := h.auth.Authenticate(r.Context(), token); err != nil {
				h.logger.WithField("remote", r.RemoteAddr).Info("Socket.IO handshake rejected")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		h.server.ServeHTTP(w, r)
	})
}

// extractToken reads the token query parameter, then the Authorization header
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return bearer(r.Header.Get("Authorization"))
}

func tokenFromURL(u url.URL) string {
	return u.Query().Get("token")
}

func bearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
