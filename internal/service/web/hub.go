// FILE: internal/service/web/hub.go
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mullvad_monitor/internal/shared/logger"
	"mullvad_monitor/internal/shared/types"
)

// 消息类型
const (
	MessageIndicator    = "indicator_update"
	MessageNotification = "notification"
)

// WebSocketMessage 定义了 WebSocket 消息的通用格式
type WebSocketMessage struct {
	ID   string      `json:"id"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// IndicatorUpdate 是推送给前端的指示器状态（托盘图标、窗口图标）
type IndicatorUpdate struct {
	Surface string `json:"surface"`
	State   string `json:"state"`
	Icon    string `json:"icon"`
	Tooltip string `json:"tooltip"`
}

// NotificationMessage 是推送给前端的桌面通知
type NotificationMessage struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages to the
// clients. It doubles as the event and notification sink for the UI, and
// hands out one indicator sink per surface.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.Mutex

	// 新客户端连接时回放的最新消息，按 type(+surface) 索引
	snapMu    sync.Mutex
	snapshots map[string][]byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]bool),
		snapshots:  make(map[string][]byte),
	}
}

func (h *Hub) Run() {
	l := logger.WithComponent("Hub")
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			for _, msg := range h.snapshotList() {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					l.Warn().Err(err).Str("remote_addr", conn.RemoteAddr().String()).Msg("Failed to replay snapshot.")
					break
				}
			}
			h.mu.Unlock()
			l.Info().Str("remote_addr", conn.RemoteAddr().String()).Msg("WebSocket client registered.")
		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				l.Info().Str("remote_addr", conn.RemoteAddr().String()).Msg("WebSocket client unregistered.")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					l.Warn().Err(err).Str("remote_addr", conn.RemoteAddr().String()).Msg("Error writing to websocket client.")
					// Assume client is disconnected, let the read pump handle unregistering
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close stops Run and drops every client. Safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) snapshotList() [][]byte {
	h.snapMu.Lock()
	defer h.snapMu.Unlock()
	out := make([][]byte, 0, len(h.snapshots))
	for _, msg := range h.snapshots {
		out = append(out, msg)
	}
	return out
}

// publish marshals and queues a message. snapshotKey, when set, keeps the
// message for replay to clients that connect later.
func (h *Hub) publish(msgType, snapshotKey string, data interface{}) error {
	msg := WebSocketMessage{ID: uuid.NewString(), Type: msgType, Data: data}
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if snapshotKey != "" {
		h.snapMu.Lock()
		h.snapshots[snapshotKey] = jsonMsg
		h.snapMu.Unlock()
	}

	select {
	case h.broadcast <- jsonMsg:
	default:
		l := logger.WithComponent("Hub")
		l.Warn().Str("type", msgType).Msg("Broadcast channel is full, skipping message.")
	}
	return nil
}

// Emit implements types.EventSink.
func (h *Hub) Emit(name string, status types.Status) error {
	return h.publish(name, name, status)
}

// Notify implements types.NotificationSink.
func (h *Hub) Notify(_ context.Context, title, body string) error {
	return h.publish(MessageNotification, "", NotificationMessage{
		Title:     title,
		Body:      body,
		Timestamp: time.Now().UTC(),
	})
}

// Indicator returns an indicator sink that renders on the named surface,
// e.g. "tray" or "window".
func (h *Hub) Indicator(surface string) types.IndicatorSink {
	return &hubIndicator{hub: h, surface: surface}
}

type hubIndicator struct {
	hub     *Hub
	surface string
}

func (i *hubIndicator) SetIndicator(state types.IndicatorState, tooltip string) error {
	return i.hub.publish(MessageIndicator, MessageIndicator+":"+i.surface, IndicatorUpdate{
		Surface: i.surface,
		State:   state.String(),
		Icon:    state.IconName(),
		Tooltip: tooltip,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Allow all origins
}

// ServeWs handles websocket requests from the peer.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	l := logger.WithComponent("Hub")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("Failed to upgrade websocket")
		return
	}
	select {
	case hub.register <- conn:
	case <-hub.done:
		conn.Close()
		return
	}

	// This is a read pump. It's needed to detect when a client closes the connection.
	go func() {
		defer func() {
			select {
			case hub.unregister <- conn:
			case <-hub.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					l.Warn().Err(err).Msg("Unexpected websocket close error")
				}
				break
			}
		}
	}()
}
