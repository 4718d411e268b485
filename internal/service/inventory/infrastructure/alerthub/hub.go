// internal/service/inventory/infrastructure/alerthub/hub.go
package alerthub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/inventory/domain/port"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 运营端内网访问，允许所有跨域
		return true
	},
}

// Hub 维护所有订阅低库存告警的运营端连接，并负责广播
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	mu      sync.RWMutex
	clients map[string]*client // 使用连接ID作为Key
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBufferSize),
		clients:    make(map[string]*client),
	}
}

var _ port.AlertNotifier = (*Hub)(nil)

// Run 驱动注册/注销/广播循环，ctx 取消时关闭所有连接
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			logger.Ctx(ctx).Debug().Str("client_id", c.id).Msg("alert client registered")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
			logger.Ctx(ctx).Debug().Str("client_id", c.id).Msg("alert client unregistered")
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- msg:
				default: // 慢客户端直接丢弃，不阻塞广播
				}
			}
			h.mu.RUnlock()
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			h.mu.Unlock()
			return ctx.Err()
		}
	}
}

// Notify 把告警序列化后广播给所有在线运营端
func (h *Hub) Notify(ctx context.Context, alert port.LowStockAlert) {
	msg, err := json.Marshal(alert)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("marshal low stock alert failed")
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		logger.Ctx(ctx).Warn().Str("sku", alert.SKU).Msg("alert broadcast buffer full, alert dropped")
	}
}

// ServeWS 处理 /ws/alerts 的升级请求
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   uuid.New().String()[:8],
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// client 是一个WebSocket连接的代表
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

func (c *client) writePump() {
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
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只消费心跳，运营端不向服务端发业务消息
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
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
