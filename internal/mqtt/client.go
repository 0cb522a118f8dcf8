package mqtt

import (
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/strayleigh/SIGMA/internal/config"
)

// MessageHandler 消息处理函数类型
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client MQTT客户端封装
// 断线后自动重连，并在重连成功时恢复已有订阅
type Client struct {
	client mqtt.Client
	config *config.MQTTConfig
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

// NewClient 创建MQTT客户端
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	c := &Client{
		config: cfg,
		logger: logger,
		subs:   make(map[string]subscription),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	// 连接生命周期信号：连接建立时恢复订阅，断开时记录日志
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.logger.Info("Connected to MQTT broker",
			zap.String("broker", cfg.Broker),
		)
		c.resubscribe(client)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("Lost connection to MQTT broker",
			zap.String("broker", cfg.Broker),
			zap.Error(err),
		)
	})

	c.client = mqtt.NewClient(opts)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return c, nil
}

// Subscribe 订阅主题
// handler 返回的错误只记录日志，不会中断订阅
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	if token := c.client.Subscribe(topic, qos, c.wrap(topic, handler)); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	return nil
}

// Publish 发布消息
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	return nil
}

// Unsubscribe 取消订阅
func (c *Client) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	for _, topic := range topics {
		delete(c.subs, topic)
	}
	c.mu.Unlock()

	token := c.client.Unsubscribe(topics...)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe: %w", token.Error())
	}

	return nil
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	c.client.Disconnect(250) // 250ms等待时间
}

// IsConnected 检查连接状态
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// resubscribe 重连成功后恢复已有订阅
func (c *Client) resubscribe(client mqtt.Client) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	c.mu.Unlock()

	for topic, sub := range subs {
		if token := client.Subscribe(topic, sub.qos, c.wrap(topic, sub.handler)); token.Wait() && token.Error() != nil {
			c.logger.Error("Failed to restore subscription",
				zap.String("topic", topic),
				zap.Error(token.Error()),
			)
		}
	}
}

func (c *Client) wrap(topic string, handler MessageHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			// 记录错误，但不中断处理
			c.logger.Error("Error handling MQTT message",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	}
}
