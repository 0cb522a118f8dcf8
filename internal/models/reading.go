package models

import "time"

// 检测状态
const (
	StatusFresh   = "fresh"
	StatusWarning = "warning"
	StatusRotten  = "rotten"
)

// ColorSensor RGB颜色传感器数值（0-255）
type ColorSensor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// SensorMessage ESP32设备上报的MQTT消息格式
type SensorMessage struct {
	FruitID     string       `json:"fruitId"`
	FruitType   string       `json:"fruitType,omitempty"`
	ColorSensor *ColorSensor `json:"colorSensor,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Humidity    *float64     `json:"humidity,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// Reading 一次解码后的传感器采样
type Reading struct {
	FruitID     string
	FruitType   string
	R           int
	G           int
	B           int
	Temperature *float64
	Humidity    *float64
	Timestamp   time.Time
}

// SensorReading sensor_readings表记录（只追加，不修改）
type SensorReading struct {
	ID          int64
	FruitID     string
	FruitType   string
	R           int
	G           int
	B           int
	Temperature *float64
	Humidity    *float64
	Status      string
	Timestamp   time.Time
}

// DetectionLog detection_logs表记录（只追加，不修改）
type DetectionLog struct {
	ID            int64
	FruitID       string
	DetectionTime time.Time
	Status        string
	Confidence    float64
}
