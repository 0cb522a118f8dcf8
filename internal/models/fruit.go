package models

import "time"

// FruitState 单个监测对象的当前状态
// fruits表的内存镜像，fruit_id为主键
type FruitState struct {
	FruitID       string    `json:"fruit_id"`
	FruitType     string    `json:"fruit_type"`
	CurrentStatus string    `json:"current_status"`
	LastSeen      time.Time `json:"last_seen"`
}
