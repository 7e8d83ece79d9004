package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat_platform/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024

	sendBufferSize = 64
)

// Client - одно WebSocket-соединение аутентифицированного пользователя.
// У пользователя может быть несколько клиентов одновременно (вкладки, устройства).
type Client struct {
	UserID   uuid.UUID
	UserName string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	heartbeat func()
	log       logger.Logger
}

func NewClient(userID uuid.UUID, userName string, conn *websocket.Conn, log logger.Logger) *Client {
	return &Client{
		UserID:   userID,
		UserName: userName,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		log:      log,
	}
}

// Enqueue ставит кадр в очередь отправки без блокировки.
// Медленный клиент при переполненной очереди отключается:
// копить неограниченный бэклог на каждое соединение нельзя.
func (c *Client) Enqueue(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.log.Warn("Client send buffer full, dropping connection", "user_id", c.UserID)
		c.close()
	}
}

// close безопасен при конкурентных вызовах: Enqueue выполняется
// на горутине отправителя, readPump закрывает соединение со своей
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump читает входящие кадры и передаёт их обработчику.
// Кадры одного соединения обрабатываются строго по порядку чтения.
func (c *Client) readPump(handle func(c *Client, raw []byte)) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected connection close", "error", err, "user_id", c.UserID)
			}
			return
		}
		handle(c, raw)
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
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			// Живое соединение продлевает presence-отметку в Redis
			if c.heartbeat != nil {
				c.heartbeat()
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
