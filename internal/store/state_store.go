package store

import (
	"sync"
	"time"

	"github.com/strayleigh/SIGMA/internal/models"
)

// FruitStateStore 监测对象当前状态的内存存储
// 单写入路径（processor），多读取方（API、事件构建）
// 值按拷贝存取，读取方不会看到写入中的半更新记录
type FruitStateStore struct {
	mu     sync.RWMutex
	states map[string]models.FruitState
}

// NewFruitStateStore 创建状态存储
func NewFruitStateStore() *FruitStateStore {
	return &FruitStateStore{
		states: make(map[string]models.FruitState),
	}
}

// Get 查询单个对象的当前状态
func (s *FruitStateStore) Get(fruitID string) (models.FruitState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[fruitID]
	return state, ok
}

// Upsert 创建或更新对象状态，返回是否已应用
// lastSeen早于已存储时间戳的更新会被跳过（按时间戳后写者胜，
// 对相同输入重复应用是幂等的）
func (s *FruitStateStore) Upsert(fruitID, fruitType, status string, lastSeen time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.states[fruitID]; ok && lastSeen.Before(existing.LastSeen) {
		return false
	}

	s.states[fruitID] = models.FruitState{
		FruitID:       fruitID,
		FruitType:     fruitType,
		CurrentStatus: status,
		LastSeen:      lastSeen,
	}
	return true
}

// List 返回全部对象状态的快照
func (s *FruitStateStore) List() []models.FruitState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.FruitState, 0, len(s.states))
	for _, state := range s.states {
		result = append(result, state)
	}
	return result
}

// CountByStatus 按状态统计对象数量
func (s *FruitStateStore) CountByStatus() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, state := range s.states {
		counts[state.CurrentStatus]++
	}
	return counts
}

// Len 当前跟踪的对象数量
func (s *FruitStateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.states)
}
