package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/models"
)

// FruitRepository 监测对象仓库（fruits表，fruit_id为主键）
type FruitRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFruitRepository 创建监测对象仓库
func NewFruitRepository(db *sql.DB, logger *zap.Logger) *FruitRepository {
	return &FruitRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert 创建或更新对象的当前状态
func (r *FruitRepository) Upsert(state *models.FruitState) error {
	query := `
		INSERT INTO fruits (fruit_id, fruit_type, current_status, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fruit_id) DO UPDATE SET
			fruit_type = EXCLUDED.fruit_type,
			current_status = EXCLUDED.current_status,
			last_seen = EXCLUDED.last_seen
	`

	_, err := r.db.Exec(query, state.FruitID, state.FruitType, state.CurrentStatus, state.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to upsert fruit: %w", err)
	}

	return nil
}

// GetByID 查询单个对象
func (r *FruitRepository) GetByID(fruitID string) (*models.FruitState, error) {
	query := `
		SELECT fruit_id, fruit_type, current_status, last_seen
		FROM fruits
		WHERE fruit_id = $1
	`

	var state models.FruitState
	err := r.db.QueryRow(query, fruitID).Scan(
		&state.FruitID,
		&state.FruitType,
		&state.CurrentStatus,
		&state.LastSeen,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("fruit not found: %s", fruitID)
		}
		return nil, fmt.Errorf("failed to query fruit: %w", err)
	}

	return &state, nil
}

// List 查询全部对象
func (r *FruitRepository) List() ([]models.FruitState, error) {
	query := `
		SELECT fruit_id, fruit_type, current_status, last_seen
		FROM fruits
		ORDER BY fruit_id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fruits: %w", err)
	}
	defer rows.Close()

	var fruits []models.FruitState
	for rows.Next() {
		var state models.FruitState
		err := rows.Scan(&state.FruitID, &state.FruitType, &state.CurrentStatus, &state.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fruit: %w", err)
		}
		fruits = append(fruits, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fruits: %w", err)
	}

	return fruits, nil
}

// CountByStatus 按状态统计对象数量
func (r *FruitRepository) CountByStatus() (map[string]int, error) {
	query := `
		SELECT current_status, COUNT(*)
		FROM fruits
		GROUP BY current_status
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to count fruits by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	return counts, nil
}
