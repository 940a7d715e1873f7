package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

// Handler upgrades /ws/{user_id} requests and hands them to the session manager.
type Handler struct {
	sessions driving.SessionManager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a websocket handler. Any origin is accepted.
func NewHandler(sessions driving.SessionManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "websocket"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", "user_id", userID, "error", err)
		return
	}

	ch := NewChannel(conn, h.logger.With("user_id", userID))
	if err := h.sessions.Serve(r.Context(), userID, ch); err != nil {
		h.logger.Info("session ended", "user_id", userID, "error", err)
	}
	ch.Close(websocket.CloseNormalClosure, "")
	<-ch.Done()
}
