package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/easygopharm/internal/observability/metrics"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// Handler upgrades GET /api/voice/live and runs one bridge per connection.
type Handler struct {
	connector LiveConnector
	upgrader  websocket.Upgrader
	metrics   *metrics.VoiceMetrics
	logger    *logging.Logger
}

// NewHandler creates the voice endpoint. An empty origin list accepts any origin.
func NewHandler(connector LiveConnector, allowedOrigins []string, m *metrics.VoiceMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return &Handler{
		connector: connector,
		metrics:   m,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  CaptureBlockSamples * 4,
			WriteBufferSize: 16 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.connector == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "voice assistant is not configured"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("voice websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	session, err := h.connector.Connect(ctx)
	if err != nil {
		h.logger.Error("voice live connect failed", "error", err)
		h.metrics.SessionOpened()
		h.metrics.SessionClosed("connect_error")
		data, _ := json.Marshal(OutboundMessage{Type: "status", Status: StatusConnectionError})
		_ = conn.WriteMessage(websocket.TextMessage, data)
		_ = conn.Close()
		return
	}

	h.metrics.SessionOpened()
	bridge := NewBridge(conn, session, h.metrics, h.logger)
	if err := bridge.Run(ctx); err != nil {
		h.logger.Warn("voice bridge closed with errors", "error", err)
		h.metrics.SessionClosed("error")
		return
	}
	h.metrics.SessionClosed("ok")
}
