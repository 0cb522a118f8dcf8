package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/config"
	mqttclient "github.com/strayleigh/SIGMA/internal/mqtt"
	"github.com/strayleigh/SIGMA/internal/models"
)

// ReadingHandler 解码后读数的处理入口
type ReadingHandler interface {
	Process(topic string, reading *models.Reading) error
}

// MQTTConsumer 传感器数据MQTT消费者
// 订阅sigma主题，解码消息后交给处理入口；
// 解码失败的消息丢弃（至多一次，不重试）
type MQTTConsumer struct {
	config     *config.Config
	mqttClient *mqttclient.Client
	handler    ReadingHandler
	logger     *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqttclient.Client,
	handler ReadingHandler,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		handler:    handler,
		logger:     logger,
	}
}

// Start 启动消费者
func (c *MQTTConsumer) Start(ctx context.Context) error {
	topic := c.config.Sensor.Topic
	if topic == "" {
		return fmt.Errorf("sensor MQTT topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to sensor topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", topic),
	)

	// 等待上下文取消
	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	topic := c.config.Sensor.Topic
	if topic != "" {
		if err := c.mqttClient.Unsubscribe(topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage 处理MQTT消息
// 返回的错误由MQTT封装层记录日志，消息丢弃不重试
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	reading, err := c.decode(payload)
	if err != nil {
		return fmt.Errorf("failed to decode message on topic %s: %w", topic, err)
	}

	return c.handler.Process(topic, reading)
}

// decode 解码消息体，发送方未带时间戳时注入接收时间
func (c *MQTTConsumer) decode(payload []byte) (*models.Reading, error) {
	var msg models.SensorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if msg.FruitID == "" {
		return nil, fmt.Errorf("missing fruitId")
	}
	if msg.ColorSensor == nil {
		return nil, fmt.Errorf("missing colorSensor")
	}

	fruitType := msg.FruitType
	if fruitType == "" {
		fruitType = "unknown"
	}

	timestamp := time.Now().UTC()
	if msg.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			timestamp = parsed.UTC()
		} else {
			c.logger.Warn("Invalid timestamp in message, using receipt time",
				zap.String("timestamp", msg.Timestamp),
			)
		}
	}

	return &models.Reading{
		FruitID:     msg.FruitID,
		FruitType:   fruitType,
		R:           msg.ColorSensor.R,
		G:           msg.ColorSensor.G,
		B:           msg.ColorSensor.B,
		Temperature: msg.Temperature,
		Humidity:    msg.Humidity,
		Timestamp:   timestamp,
	}, nil
}
