package models

// 推送消息类型
const (
	EventTypeSensorUpdate = "sensor_update"
	EventTypeConnected    = "connected"
	EventTypePong         = "pong"
)

// SensorUpdateEvent 每条处理完成的读数向所有在线观察者推送的事件
type SensorUpdateEvent struct {
	Type        string   `json:"type"`
	FruitID     string   `json:"fruit_id"`
	FruitType   string   `json:"fruit_type"`
	R           int      `json:"r"`
	G           int      `json:"g"`
	B           int      `json:"b"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Status      string   `json:"status"`
	Confidence  float64  `json:"confidence"`
	Timestamp   string   `json:"timestamp"`
}

// ConnectedEvent 连接建立时推送的欢迎消息
type ConnectedEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
