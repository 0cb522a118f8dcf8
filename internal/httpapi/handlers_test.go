package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/hub"
	"github.com/strayleigh/SIGMA/internal/models"
	"github.com/strayleigh/SIGMA/internal/store"
)

// fakeReadingQuerier 测试用读数查询
type fakeReadingQuerier struct {
	latest  []models.SensorReading
	history []models.SensorReading
	total   int

	historyFruitID string
	historyLimit   int
}

func (f *fakeReadingQuerier) LatestPerFruit() ([]models.SensorReading, error) {
	return f.latest, nil
}

func (f *fakeReadingQuerier) History(fruitID string, _ time.Time, limit int) ([]models.SensorReading, error) {
	f.historyFruitID = fruitID
	f.historyLimit = limit
	return f.history, nil
}

func (f *fakeReadingQuerier) TotalReadings() (int, error) {
	return f.total, nil
}

type apiEnv struct {
	server     *httptest.Server
	stateStore *store.FruitStateStore
	querier    *fakeReadingQuerier
	hub        *hub.Hub
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	env := &apiEnv{
		stateStore: store.NewFruitStateStore(),
		querier:    &fakeReadingQuerier{},
		hub:        hub.NewHub(16, time.Second, time.Hour, zap.NewNop()),
	}

	handler := NewHandler(env.stateStore, env.querier, env.hub, zap.NewNop())
	router := NewRouter(handler, []string{"http://localhost:3000"})

	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)

	return env
}

func getJSON(t *testing.T, url string, dest interface{}) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)

	var body map[string]string
	resp := getJSON(t, env.server.URL+"/health", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestGetFruits(t *testing.T) {
	env := newAPIEnv(t)
	ts := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	env.stateStore.Upsert("F2", "banana", models.StatusWarning, ts)
	env.stateStore.Upsert("F1", "apple", models.StatusFresh, ts)

	var fruits []FruitResponse
	resp := getJSON(t, env.server.URL+"/api/fruits", &fruits)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, fruits, 2)
	// 按fruit_id排序
	assert.Equal(t, "F1", fruits[0].FruitID)
	assert.Equal(t, models.StatusFresh, fruits[0].CurrentStatus)
	assert.Equal(t, "#4ade80", fruits[0].StatusColor)
	assert.Equal(t, "#fb923c", fruits[1].StatusColor)
}

func TestGetFruit(t *testing.T) {
	env := newAPIEnv(t)
	env.stateStore.Upsert("F1", "apple", models.StatusRotten, time.Now().UTC())

	var fruit FruitResponse
	resp := getJSON(t, env.server.URL+"/api/fruits/F1", &fruit)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "F1", fruit.FruitID)
	assert.Equal(t, "#ef4444", fruit.StatusColor)
}

func TestGetFruit_NotFound(t *testing.T) {
	env := newAPIEnv(t)

	resp := getJSON(t, env.server.URL+"/api/fruits/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetLatestReadings(t *testing.T) {
	env := newAPIEnv(t)
	env.querier.latest = []models.SensorReading{
		{ID: 1, FruitID: "F1", FruitType: "apple", R: 160, G: 70, B: 40,
			Status: models.StatusFresh, Timestamp: time.Now().UTC()},
	}

	var readings []SensorReadingResponse
	resp := getJSON(t, env.server.URL+"/api/sensors/latest", &readings)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, readings, 1)
	assert.Equal(t, "F1", readings[0].FruitID)
}

func TestGetHistory_QueryParams(t *testing.T) {
	env := newAPIEnv(t)

	var readings []SensorReadingResponse
	resp := getJSON(t, env.server.URL+"/api/sensors/history?fruit_id=F1&hours=48&limit=10", &readings)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "F1", env.querier.historyFruitID)
	assert.Equal(t, 10, env.querier.historyLimit)
	assert.Empty(t, readings)
}

func TestGetStats(t *testing.T) {
	env := newAPIEnv(t)
	ts := time.Now().UTC()
	env.stateStore.Upsert("F1", "apple", models.StatusFresh, ts)
	env.stateStore.Upsert("F2", "banana", models.StatusFresh, ts)
	env.stateStore.Upsert("F3", "orange", models.StatusRotten, ts)
	env.querier.total = 42

	var stats StatsResponse
	resp := getJSON(t, env.server.URL+"/api/stats", &stats)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 42, stats.TotalReadings)
	assert.Equal(t, 3, stats.ActiveFruits)
	assert.Equal(t, 2, stats.FreshCount)
	assert.Equal(t, 0, stats.WarningCount)
	assert.Equal(t, 1, stats.RottenCount)
}

func TestCORS(t *testing.T) {
	env := newAPIEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	// 不在白名单中的来源不返回CORS头
	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestServeWS_EndToEnd(t *testing.T) {
	env := newAPIEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// 连接建立后先收到欢迎消息
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var welcome models.ConnectedEvent
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, models.EventTypeConnected, welcome.Type)

	// 广播的事件能送达
	env.hub.Broadcast(&models.SensorUpdateEvent{
		Type:    models.EventTypeSensorUpdate,
		FruitID: "F1",
		Status:  models.StatusFresh,
	})

	var event models.SensorUpdateEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "F1", event.FruitID)

	// 文本ping收到pong回复
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	var pong map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, models.EventTypePong, pong["type"])
}

func TestServeWS_BroadcastReachesMultipleObservers(t *testing.T) {
	env := newAPIEnv(t)
	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()
		conns[i] = conn

		var welcome models.ConnectedEvent
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, conn.ReadJSON(&welcome))
	}

	env.hub.Broadcast(&models.SensorUpdateEvent{
		Type:    models.EventTypeSensorUpdate,
		FruitID: "F9",
	})

	for i, conn := range conns {
		var event models.SensorUpdateEvent
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, conn.ReadJSON(&event), fmt.Sprintf("observer %d", i))
		assert.Equal(t, "F9", event.FruitID)
	}
}
