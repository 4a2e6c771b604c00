package chat

import (
	"errors"
	"sync"
	"time"

	"BKConnect/logger"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize = 256
	enqueueWait   = 5 * time.Second
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
)

var errChannelClosed = errors.New("channel closed")
var errSendQueueFull = errors.New("send queue full")

// Client is one authenticated websocket session. The send queue is consumed
// by a single writer goroutine, so pushes from one caller arrive on the wire
// in call order.
type Client struct {
	ConnID string
	UserID string

	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func NewClient(connID, userID string, ws *websocket.Conn) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Push enqueues a frame for the writer goroutine. It blocks at most
// enqueueWait; a closed session or a peer that cannot drain its queue in
// that window reports an error so the registry can evict the connection.
func (c *Client) Push(data []byte) error {
	select {
	case <-c.done:
		return errChannelClosed
	default:
	}

	t := time.NewTimer(enqueueWait)
	defer t.Stop()
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errChannelClosed
	case <-t.C:
		return errSendQueueFull
	}
}

// Close is idempotent; it stops the writer and closes the socket.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
	return nil
}

// WritePump drains the send queue onto the socket. Run it in its own
// goroutine; it exits when the client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[Client] write err user=%s conn=%s err=%v", c.UserID, c.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
