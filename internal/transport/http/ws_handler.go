package http

import (
	"encoding/json"
	"net/http"

	"course-portal/internal/app"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WatchHandler streams profile updates for one email over a websocket.
type WatchHandler struct {
	service  *app.ProfileService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWatchHandler(service *app.ProfileService, logger *zap.Logger) *WatchHandler {
	return &WatchHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades GET /api/users/{email}/watch. The current record, if any, is sent
// first, then every record saved for the email. Inbound messages are ignored.
func (h *WatchHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Missing email")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.String("email", email), zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Watch(r.Context(), email)
	defer cancel()

	// The reader only notices the peer going away; all writes stay on this goroutine.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case record, ok := <-updates:
			if !ok {
				return
			}
			msg := outboundMessage[json.RawMessage]{Type: "profile", Payload: record}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.String("email", email), zap.Error(err))
				return
			}
		case <-readerDone:
			return
		}
	}
}
