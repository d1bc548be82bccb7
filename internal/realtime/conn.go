package realtime

import (
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/tabia/api/data/model"
)

const (
	pongWait   = time.Second * 60
	pingPeriod = (pongWait * 9) / 10
)

// Conn is one live websocket. The identity, when present, was
// attached by the gatekeeper at upgrade time and never changes.
type Conn struct {
	id       string
	ws       *websocket.Conn
	identity *model.Identity

	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn, identity *model.Identity, sendBuffer int) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}

	return &Conn{
		id:       uuid.NewString(),
		ws:       ws,
		identity: identity,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Identity() (model.Identity, bool) {
	if c.identity == nil {
		return model.Identity{}, false
	}

	return *c.identity, true
}

// Deliver queues a frame for the write pump without blocking. A full
// queue means the client is too slow; the frame is dropped.
func (c *Conn) Deliver(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) writePump(writeTimeout time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))

			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()

				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))

			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()

				return
			}
		}
	}
}
