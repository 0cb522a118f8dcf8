package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/models"
)

// DetectionLogRepository 检测日志仓库（detection_logs表，只追加）
type DetectionLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDetectionLogRepository 创建检测日志仓库
func NewDetectionLogRepository(db *sql.DB, logger *zap.Logger) *DetectionLogRepository {
	return &DetectionLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert 追加一条检测日志
func (r *DetectionLogRepository) Insert(log *models.DetectionLog) (int64, error) {
	query := `
		INSERT INTO detection_logs (
			fruit_id,
			detection_time,
			status,
			confidence
		) VALUES (
			$1, $2, $3, $4
		)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(
		query,
		log.FruitID,
		log.DetectionTime,
		log.Status,
		log.Confidence,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to insert detection log: %w", err)
	}

	return id, nil
}
