package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/regions/internal/middleware"
	"github.com/onnwee/regions/internal/stream"
)

// ChangeFeed upgrades GET /ws/regions and streams workspace changes to the
// client. Clients are not expected to send messages; reads only detect
// disconnects and pong replies.
type ChangeFeed struct {
	broadcaster *stream.Broadcaster
	upgrader    websocket.Upgrader
}

// NewChangeFeed creates a feed handler. Browser connections must come from
// one of allowedOrigins; an empty list accepts any origin.
func NewChangeFeed(broadcaster *stream.Broadcaster, allowedOrigins []string) *ChangeFeed {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &ChangeFeed{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				return allowed[origin] || allowed["*"]
			},
		},
	}
}

// ServeHTTP handles GET /ws/regions.
func (f *ChangeFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Upgrade writes its own error response.
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	f.broadcaster.Subscribe(conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "websocket client subscribed to region changes",
		"request_id", requestID,
		"remote_addr", r.RemoteAddr,
	)

	defer func() {
		f.broadcaster.Unsubscribe(conn)
		conn.Close()
		slog.InfoContext(ctx, "websocket client unsubscribed", "request_id", requestID)
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(stream.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(stream.PongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly", "error", err)
			}
			return
		}
	}
}
