package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/models"
)

// 状态镜像键前缀
const stateKeyPrefix = "sigma:fruit:"

// StateMirror 对象状态的Redis镜像
// 供外部消费方读取最新状态，不是核心管道的真相来源
type StateMirror struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      *zap.Logger
}

// NewStateMirror 创建状态镜像
func NewStateMirror(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *StateMirror {
	return &StateMirror{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

// Set 写入对象状态（带TTL）
func (m *StateMirror) Set(ctx context.Context, state *models.FruitState) error {
	jsonData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal fruit state: %w", err)
	}

	key := stateKeyPrefix + state.FruitID
	if err := m.redisClient.Set(ctx, key, jsonData, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set fruit state: %w", err)
	}

	m.logger.Debug("Mirrored fruit state to Redis",
		zap.String("fruit_id", state.FruitID),
		zap.String("status", state.CurrentStatus),
	)

	return nil
}

// Get 读取对象状态
func (m *StateMirror) Get(ctx context.Context, fruitID string) (*models.FruitState, error) {
	key := stateKeyPrefix + fruitID

	val, err := m.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("fruit state not found: %s", fruitID)
		}
		return nil, fmt.Errorf("failed to get fruit state: %w", err)
	}

	var state models.FruitState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fruit state: %w", err)
	}

	return &state, nil
}
