package processor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/detection"
	"github.com/strayleigh/SIGMA/internal/models"
	"github.com/strayleigh/SIGMA/internal/store"
)

// ReadingAppender 传感器读数追加接口
type ReadingAppender interface {
	Insert(reading *models.SensorReading) (int64, error)
}

// DetectionAppender 检测日志追加接口
type DetectionAppender interface {
	Insert(log *models.DetectionLog) (int64, error)
}

// FruitUpserter 对象状态持久化接口
type FruitUpserter interface {
	Upsert(state *models.FruitState) error
}

// StateMirror 对象状态Redis镜像接口
type StateMirror interface {
	Set(ctx context.Context, state *models.FruitState) error
}

// EventPublisher 事件推送接口
type EventPublisher interface {
	Publish(event *models.SensorUpdateEvent)
}

// persistJob 持久化与推送任务
// 状态更新在入口同步完成后，剩余工作交给worker异步执行，
// 避免持久化和推送拖慢MQTT投递循环
type persistJob struct {
	reading    models.Reading
	status     string
	confidence float64
	// 状态更新是否被应用（时间戳过期的更新跳过持久化镜像）
	stateApplied bool
}

// Processor 读数处理器：校验 → 检测 → 状态更新 → 持久化 → 推送
type Processor struct {
	detector    *detection.Detector
	stateStore  *store.FruitStateStore
	readingRepo ReadingAppender
	logRepo     DetectionAppender
	fruitRepo   FruitUpserter
	mirror      StateMirror
	publisher   EventPublisher
	logger      *zap.Logger

	jobs chan persistJob
}

// NewProcessor 创建读数处理器
// mirror可为nil（未配置Redis镜像时）
func NewProcessor(
	detector *detection.Detector,
	stateStore *store.FruitStateStore,
	readingRepo ReadingAppender,
	logRepo DetectionAppender,
	fruitRepo FruitUpserter,
	mirror StateMirror,
	publisher EventPublisher,
	queueSize int,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		detector:    detector,
		stateStore:  stateStore,
		readingRepo: readingRepo,
		logRepo:     logRepo,
		fruitRepo:   fruitRepo,
		mirror:      mirror,
		publisher:   publisher,
		logger:      logger,
		jobs:        make(chan persistJob, queueSize),
	}
}

// Process 处理一条解码后的读数
// 校验和内存状态更新同步完成（保持同一对象的到达顺序），
// 持久化和推送交给worker队列。返回的错误由调用方记录，消息不重试
func (p *Processor) Process(topic string, reading *models.Reading) error {
	if err := validate(reading); err != nil {
		return fmt.Errorf("invalid reading on topic %s: %w", topic, err)
	}

	status, confidence := p.detector.Detect(
		reading.FruitType, reading.R, reading.G, reading.B, reading.Temperature)

	p.logger.Info("Detection result",
		zap.String("fruit_id", reading.FruitID),
		zap.String("status", status),
		zap.Float64("confidence", confidence),
	)

	applied := p.stateStore.Upsert(reading.FruitID, reading.FruitType, status, reading.Timestamp)

	job := persistJob{
		reading:      *reading,
		status:       status,
		confidence:   confidence,
		stateApplied: applied,
	}

	select {
	case p.jobs <- job:
	default:
		// 队列满时丢弃最新任务：读数的历史记录允许缺失，但不能拖慢消息接收
		p.logger.Warn("Persist queue full, dropping job",
			zap.String("fruit_id", reading.FruitID),
		)
	}

	return nil
}

// Run 消费持久化队列，阻塞直到ctx取消
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.handleJob(ctx, job)
		}
	}
}

// handleJob 执行单个任务：两条追加写、状态持久化、镜像、推送
// 每一步失败只记录日志，后续步骤照常执行（可用性优先于持久性）
func (p *Processor) handleJob(ctx context.Context, job persistJob) {
	reading := &job.reading

	if _, err := p.readingRepo.Insert(&models.SensorReading{
		FruitID:     reading.FruitID,
		FruitType:   reading.FruitType,
		R:           reading.R,
		G:           reading.G,
		B:           reading.B,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Status:      job.status,
		Timestamp:   reading.Timestamp,
	}); err != nil {
		p.logger.Error("Failed to persist sensor reading",
			zap.String("fruit_id", reading.FruitID),
			zap.Error(err),
		)
	}

	if _, err := p.logRepo.Insert(&models.DetectionLog{
		FruitID:       reading.FruitID,
		DetectionTime: reading.Timestamp,
		Status:        job.status,
		Confidence:    job.confidence,
	}); err != nil {
		p.logger.Error("Failed to persist detection log",
			zap.String("fruit_id", reading.FruitID),
			zap.Error(err),
		)
	}

	if job.stateApplied {
		state := &models.FruitState{
			FruitID:       reading.FruitID,
			FruitType:     reading.FruitType,
			CurrentStatus: job.status,
			LastSeen:      reading.Timestamp,
		}

		if err := p.fruitRepo.Upsert(state); err != nil {
			p.logger.Error("Failed to persist fruit state",
				zap.String("fruit_id", reading.FruitID),
				zap.Error(err),
			)
		}

		if p.mirror != nil {
			if err := p.mirror.Set(ctx, state); err != nil {
				p.logger.Error("Failed to mirror fruit state",
					zap.String("fruit_id", reading.FruitID),
					zap.Error(err),
				)
			}
		}
	}

	p.publisher.Publish(&models.SensorUpdateEvent{
		Type:        models.EventTypeSensorUpdate,
		FruitID:     reading.FruitID,
		FruitType:   reading.FruitType,
		R:           reading.R,
		G:           reading.G,
		B:           reading.B,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Status:      job.status,
		Confidence:  job.confidence,
		Timestamp:   reading.Timestamp.UTC().Format(time.RFC3339),
	})
}

// validate 校验必填字段和通道取值范围
func validate(reading *models.Reading) error {
	if reading.FruitID == "" {
		return fmt.Errorf("missing fruit id")
	}
	for _, v := range []int{reading.R, reading.G, reading.B} {
		if v < 0 || v > 255 {
			return fmt.Errorf("channel value out of range: %d", v)
		}
	}
	return nil
}
