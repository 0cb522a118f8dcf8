package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/models"
)

// Conn WebSocket连接的最小接口（*websocket.Conn实现，测试中可用fake替换）
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client 单个观察者连接
type Client struct {
	ID   string
	conn Conn

	// gorilla/websocket不允许并发写同一连接
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Hub 向所有在线观察者推送事件的广播中心
// 连接集合只通过Attach/Detach变更；广播对快照迭代，
// 单个连接的发送失败只会摘除该连接，不影响其他连接
type Hub struct {
	logger       *zap.Logger
	writeTimeout time.Duration
	heartbeat    time.Duration

	mu      sync.RWMutex
	clients map[*Client]struct{}

	events chan *models.SensorUpdateEvent
}

// NewHub 创建广播中心
func NewHub(queueSize int, writeTimeout, heartbeat time.Duration, logger *zap.Logger) *Hub {
	return &Hub{
		logger:       logger,
		writeTimeout: writeTimeout,
		heartbeat:    heartbeat,
		clients:      make(map[*Client]struct{}),
		events:       make(chan *models.SensorUpdateEvent, queueSize),
	}
}

// Attach 注册一个观察者连接并发送欢迎消息
func (h *Hub) Attach(conn Conn) *Client {
	client := &Client{
		ID:   uuid.NewString(),
		conn: conn,
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.Int("total", total),
	)

	welcome := models.ConnectedEvent{
		Type:      models.EventTypeConnected,
		Message:   "Connected to SIGMA WebSocket",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.send(client, welcome); err != nil {
		h.logger.Warn("Failed to send welcome message",
			zap.String("client_id", client.ID),
			zap.Error(err),
		)
		h.Detach(client)
	}

	return client
}

// Detach 摘除一个观察者连接并关闭底层连接（可重复调用）
func (h *Hub) Detach(client *Client) {
	client.closeOnce.Do(func() {
		h.mu.Lock()
		delete(h.clients, client)
		total := len(h.clients)
		h.mu.Unlock()

		_ = client.conn.Close()

		h.logger.Info("WebSocket client disconnected",
			zap.String("client_id", client.ID),
			zap.Int("total", total),
		)
	})
}

// Publish 把事件投入队列，不阻塞调用方
// 队列满时丢弃最新事件并记录日志（可用性优先）
func (h *Hub) Publish(event *models.SensorUpdateEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("Event queue full, dropping event",
			zap.String("fruit_id", event.FruitID),
		)
	}
}

// Run 消费事件队列并广播，同时定期心跳探活
// 阻塞直到ctx取消
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case event := <-h.events:
			h.Broadcast(event)
		case <-ticker.C:
			h.pingClients()
		}
	}
}

// Broadcast 向当前全部在线连接推送一个事件
func (h *Hub) Broadcast(event *models.SensorUpdateEvent) {
	snapshot := h.snapshot()
	if len(snapshot) == 0 {
		// 没有观察者时不做序列化
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	// 对快照迭代，失败的连接在迭代结束后再摘除
	var failed []*Client
	for _, client := range snapshot {
		if err := h.sendRaw(client, data); err != nil {
			h.logger.Warn("Failed to send to WebSocket client",
				zap.String("client_id", client.ID),
				zap.Error(err),
			)
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		h.Detach(client)
	}
}

// ServeReads 处理单个连接的入站消息，连接出错时摘除
// 客户端发送文本"ping"时回复pong（保活协议）
func (h *Hub) ServeReads(client *Client) {
	defer h.Detach(client)

	for {
		msgType, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		if msgType == websocket.TextMessage && string(data) == "ping" {
			pong := map[string]string{"type": models.EventTypePong}
			if err := h.send(client, pong); err != nil {
				return
			}
		}
	}
}

// Len 当前在线连接数
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshot := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		snapshot = append(snapshot, client)
	}
	return snapshot
}

func (h *Hub) send(client *Client, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.sendRaw(client, data)
}

func (h *Hub) sendRaw(client *Client, data []byte) error {
	client.writeMu.Lock()
	defer client.writeMu.Unlock()

	_ = client.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return client.conn.WriteMessage(websocket.TextMessage, data)
}

// pingClients 向全部连接发送ping帧，失败的连接摘除
func (h *Hub) pingClients() {
	var failed []*Client
	for _, client := range h.snapshot() {
		client.writeMu.Lock()
		_ = client.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		err := client.conn.WriteMessage(websocket.PingMessage, nil)
		client.writeMu.Unlock()

		if err != nil {
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		h.Detach(client)
	}
}

func (h *Hub) closeAll() {
	for _, client := range h.snapshot() {
		h.Detach(client)
	}
}
