package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/models"
)

// SensorReadingRepository 传感器读数仓库（sensor_readings表，只追加）
type SensorReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSensorReadingRepository 创建传感器读数仓库
func NewSensorReadingRepository(db *sql.DB, logger *zap.Logger) *SensorReadingRepository {
	return &SensorReadingRepository{
		db:     db,
		logger: logger,
	}
}

// Insert 追加一条传感器读数
func (r *SensorReadingRepository) Insert(reading *models.SensorReading) (int64, error) {
	query := `
		INSERT INTO sensor_readings (
			fruit_id,
			fruit_type,
			r,
			g,
			b,
			temperature,
			humidity,
			status,
			timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(
		query,
		reading.FruitID,
		reading.FruitType,
		reading.R,
		reading.G,
		reading.B,
		reading.Temperature,
		reading.Humidity,
		reading.Status,
		reading.Timestamp,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to insert sensor reading: %w", err)
	}

	return id, nil
}

// LatestPerFruit 查询每个对象的最新一条读数
func (r *SensorReadingRepository) LatestPerFruit() ([]models.SensorReading, error) {
	query := `
		SELECT DISTINCT ON (fruit_id)
			id, fruit_id, fruit_type, r, g, b, temperature, humidity, status, timestamp
		FROM sensor_readings
		ORDER BY fruit_id, timestamp DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// History 按时间窗口查询历史读数，时间倒序，限制返回条数
// fruitID为空时不按对象过滤
func (r *SensorReadingRepository) History(fruitID string, since time.Time, limit int) ([]models.SensorReading, error) {
	query := `
		SELECT id, fruit_id, fruit_type, r, g, b, temperature, humidity, status, timestamp
		FROM sensor_readings
		WHERE timestamp >= $1
	`
	args := []interface{}{since}

	if fruitID != "" {
		query += ` AND fruit_id = $2`
		args = append(args, fruitID)
	}

	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT %d`, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reading history: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// TotalReadings 读数总条数
func (r *SensorReadingRepository) TotalReadings() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM sensor_readings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}

func scanReadings(rows *sql.Rows) ([]models.SensorReading, error) {
	var readings []models.SensorReading
	for rows.Next() {
		var reading models.SensorReading
		var temperature, humidity sql.NullFloat64

		err := rows.Scan(
			&reading.ID,
			&reading.FruitID,
			&reading.FruitType,
			&reading.R,
			&reading.G,
			&reading.B,
			&temperature,
			&humidity,
			&reading.Status,
			&reading.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}

		if temperature.Valid {
			reading.Temperature = &temperature.Float64
		}
		if humidity.Valid {
			reading.Humidity = &humidity.Float64
		}

		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensor readings: %w", err)
	}

	return readings, nil
}
