package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"liveclass/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The coordinator runs behind a trusted application layer; origin
		// policy belongs there.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler upgrades dashboard subscriptions. Identity is validated before the
// upgrade so an invalid request never consumes a socket.
type Handler struct {
	sink         ConnectionSink
	pingInterval time.Duration
	readTimeout  time.Duration
}

// NewHandler creates a WebSocket handler delivering connections to sink.
func NewHandler(sink ConnectionSink, pingInterval, readTimeout time.Duration) *Handler {
	return &Handler{
		sink:         sink,
		pingInterval: pingInterval,
		readTimeout:  readTimeout,
	}
}

// HandleWebSocket handles GET /ws?classroom_id=...&user_id=...
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	classroomID := r.URL.Query().Get("classroom_id")
	userID := r.URL.Query().Get("user_id")

	if classroomID == "" || userID == "" {
		http.Error(w, "Missing required query parameters: classroom_id, user_id", http.StatusBadRequest)
		return
	}
	if !types.IsValidID(classroomID) {
		http.Error(w, "Invalid classroom_id format", http.StatusBadRequest)
		return
	}
	if !types.IsValidID(userID) {
		http.Error(w, "Invalid user_id format", http.StatusBadRequest)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: user=%s err=%v", userID, err)
		return
	}

	conn := NewConnection(wsConn, userID, classroomID, h.pingInterval)
	if err := h.sink.RegisterConnection(conn); err != nil {
		log.Printf("Connection registration rejected: user=%s err=%v", userID, err)
		conn.Close()
		return
	}

	go h.readLoop(conn, wsConn)
}

// readLoop consumes inbound frames until the peer goes away. The dashboard
// feed is push-only, so inbound text frames are discarded; reading is still
// required to process pongs and close frames.
func (h *Handler) readLoop(conn *Connection, wsConn *websocket.Conn) {
	defer func() {
		if err := h.sink.UnregisterConnection(conn); err != nil {
			log.Printf("Connection deregistration failed: user=%s err=%v", conn.GetUserID(), err)
		}
		conn.Close()
	}()

	wsConn.SetReadLimit(4096)
	resetDeadline := func() {
		if h.readTimeout > 0 {
			wsConn.SetReadDeadline(time.Now().Add(h.readTimeout))
		}
	}
	resetDeadline()
	wsConn.SetPongHandler(func(string) error {
		resetDeadline()
		return nil
	})

	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			return
		}
		resetDeadline()
	}
}
