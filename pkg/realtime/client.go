package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client представляет одно websocket соединение, подписанное на несколько комнат
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	rooms     []string
	send      chan []byte
	closeOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, rooms []string) *Client {
	return &Client{conn: conn, hub: h, rooms: rooms, send: make(chan []byte, 256)}
}

// ServeWS переводит запрос на websocket и подписывает клиента на комнаты
func ServeWS(h *Hub, w http.ResponseWriter, r *http.Request, rooms ...string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(h, conn, rooms)
	for _, room := range rooms {
		h.Join(room, c)
	}
	go c.writePump()
	go c.readPump()
	return nil
}

// readPump нужен только для обработки pong и обнаружения закрытия
func (c *Client) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(8 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Close отписывает клиента от комнат и останавливает writePump. Повторный вызов безопасен
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		for _, room := range c.rooms {
			c.hub.Leave(room, c)
		}
		close(c.send)
	})
}
