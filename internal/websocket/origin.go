package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/webrana-replypilot/internal/logger"
)

const defaultOrigin = "http://localhost:3000"

// ParseOrigins splits a comma-separated ALLOWED_ORIGINS value, dropping empty
// entries. An empty result falls back to the local dashboard origin.
func ParseOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{defaultOrigin}
	}
	return origins
}

// NewSecureUpgrader creates a WebSocket upgrader with origin validation
func NewSecureUpgrader(allowedOrigins string, secLogger *logger.SecurityLogger) websocket.Upgrader {
	allowed := ParseOrigins(allowedOrigins)

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Same-origin requests carry no Origin header
			if origin == "" {
				return true
			}

			for _, a := range allowed {
				if a == origin {
					return true
				}
			}

			if secLogger != nil {
				secLogger.InvalidOrigin(r.RemoteAddr, origin)
			}
			return false
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// DefaultUpgrader returns an upgrader that allows all origins (for development)
func DefaultUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}
