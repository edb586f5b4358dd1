package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeBufferSize = 100
	writeTimeout    = 5 * time.Second
)

// ConnectionSink receives connection lifecycle events. Implemented by the
// hub; declared here so the handler does not import it.
type ConnectionSink interface {
	RegisterConnection(conn *Connection) error
	UnregisterConnection(conn *Connection) error
}

// Connection wraps a dashboard WebSocket. All writes go through a single
// writer goroutine, so concurrent event fan-out never races on the socket.
// Identity is fixed at construction; the handler validates it before
// upgrading.
type Connection struct {
	conn         *websocket.Conn
	writeCh      chan []byte
	userID       string
	classroomID  string
	pingInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

// NewConnection wraps an upgraded socket and starts its writer goroutine,
// which also emits pings at pingInterval (zero disables pings, used by
// tests).
func NewConnection(conn *websocket.Conn, userID, classroomID string, pingInterval time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:         conn,
		writeCh:      make(chan []byte, writeBufferSize),
		userID:       userID,
		classroomID:  classroomID,
		pingInterval: pingInterval,
		ctx:          ctx,
		cancel:       cancel,
	}

	go c.writeLoop()
	return c
}

func (c *Connection) writeLoop() {
	var pingCh <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		pingCh = ticker.C
	}

	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-pingCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON queues v for delivery. A slow consumer whose buffer stays full
// for the write timeout gets an error instead of blocking the hub.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close shuts the connection down exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

func (c *Connection) GetUserID() string      { return c.userID }
func (c *Connection) GetClassroomID() string { return c.classroomID }
