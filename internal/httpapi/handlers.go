package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/detection"
	"github.com/strayleigh/SIGMA/internal/hub"
	"github.com/strayleigh/SIGMA/internal/models"
	"github.com/strayleigh/SIGMA/internal/store"
)

// ReadingQuerier 读数查询接口（仅供报表API使用）
type ReadingQuerier interface {
	LatestPerFruit() ([]models.SensorReading, error)
	History(fruitID string, since time.Time, limit int) ([]models.SensorReading, error)
	TotalReadings() (int, error)
}

// FruitResponse 对象查询响应
type FruitResponse struct {
	FruitID       string    `json:"fruit_id"`
	FruitType     string    `json:"fruit_type"`
	CurrentStatus string    `json:"current_status"`
	LastSeen      time.Time `json:"last_seen"`
	StatusColor   string    `json:"status_color"`
}

// SensorReadingResponse 读数查询响应
type SensorReadingResponse struct {
	ID          int64     `json:"id"`
	FruitID     string    `json:"fruit_id"`
	FruitType   string    `json:"fruit_type"`
	R           int       `json:"r"`
	G           int       `json:"g"`
	B           int       `json:"b"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// StatsResponse 统计响应
type StatsResponse struct {
	TotalReadings int `json:"total_readings"`
	ActiveFruits  int `json:"active_fruits"`
	FreshCount    int `json:"fresh_count"`
	WarningCount  int `json:"warning_count"`
	RottenCount   int `json:"rotten_count"`
}

// Handler 只读报表API（不做任何写入）
type Handler struct {
	stateStore  *store.FruitStateStore
	readingRepo ReadingQuerier
	hub         *hub.Hub
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewHandler 创建API处理器
func NewHandler(
	stateStore *store.FruitStateStore,
	readingRepo ReadingQuerier,
	h *hub.Hub,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		stateStore:  stateStore,
		readingRepo: readingRepo,
		hub:         h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨源策略由CORS中间件统一控制
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Health 健康检查
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// GetFruits 列出全部监测对象及当前状态
func (h *Handler) GetFruits(w http.ResponseWriter, _ *http.Request) {
	states := h.stateStore.List()
	sort.Slice(states, func(i, j int) bool {
		return states[i].FruitID < states[j].FruitID
	})

	result := make([]FruitResponse, 0, len(states))
	for _, state := range states {
		result = append(result, toFruitResponse(state))
	}

	h.writeJSON(w, http.StatusOK, result)
}

// GetFruit 查询单个监测对象
func (h *Handler) GetFruit(w http.ResponseWriter, r *http.Request) {
	fruitID := mux.Vars(r)["id"]

	state, ok := h.stateStore.Get(fruitID)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "fruit not found"})
		return
	}

	h.writeJSON(w, http.StatusOK, toFruitResponse(state))
}

// GetLatestReadings 查询每个对象的最新读数
func (h *Handler) GetLatestReadings(w http.ResponseWriter, _ *http.Request) {
	readings, err := h.readingRepo.LatestPerFruit()
	if err != nil {
		h.logger.Error("Failed to query latest readings", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.writeJSON(w, http.StatusOK, toReadingResponses(readings))
}

// GetHistory 按时间窗口查询历史读数
// 查询参数: fruit_id（可选）、hours（默认24）、limit（默认100）
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	fruitID := r.URL.Query().Get("fruit_id")
	hours := queryInt(r, "hours", 24)
	limit := queryInt(r, "limit", 100)

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	readings, err := h.readingRepo.History(fruitID, since, limit)
	if err != nil {
		h.logger.Error("Failed to query reading history", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.writeJSON(w, http.StatusOK, toReadingResponses(readings))
}

// GetStats 系统统计
func (h *Handler) GetStats(w http.ResponseWriter, _ *http.Request) {
	total, err := h.readingRepo.TotalReadings()
	if err != nil {
		h.logger.Error("Failed to count readings", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	counts := h.stateStore.CountByStatus()

	h.writeJSON(w, http.StatusOK, StatsResponse{
		TotalReadings: total,
		ActiveFruits:  h.stateStore.Len(),
		FreshCount:    counts[models.StatusFresh],
		WarningCount:  counts[models.StatusWarning],
		RottenCount:   counts[models.StatusRotten],
	})
}

// ServeWS WebSocket接入点：升级连接并注册到广播中心
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := h.hub.Attach(conn)
	h.hub.ServeReads(client)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func toFruitResponse(state models.FruitState) FruitResponse {
	return FruitResponse{
		FruitID:       state.FruitID,
		FruitType:     state.FruitType,
		CurrentStatus: state.CurrentStatus,
		LastSeen:      state.LastSeen,
		StatusColor:   detection.StatusColor(state.CurrentStatus),
	}
}

func toReadingResponses(readings []models.SensorReading) []SensorReadingResponse {
	result := make([]SensorReadingResponse, 0, len(readings))
	for _, reading := range readings {
		result = append(result, SensorReadingResponse{
			ID:          reading.ID,
			FruitID:     reading.FruitID,
			FruitType:   reading.FruitType,
			R:           reading.R,
			G:           reading.G,
			B:           reading.B,
			Temperature: reading.Temperature,
			Humidity:    reading.Humidity,
			Status:      reading.Status,
			Timestamp:   reading.Timestamp,
		})
	}
	return result
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
