package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Config SIGMA后端配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 传感器数据订阅配置
	Sensor struct {
		Topic string // 订阅主题，如 "sigma/#"
	}

	// 检测规则配置
	Detection struct {
		RulesPath string // 规则JSON文件路径，为空时使用内置规则
		StateTTL  int    // Redis状态镜像TTL（秒）
	}

	// HTTP服务配置
	HTTP struct {
		Addr        string
		CORSOrigins []string
	}

	// WebSocket推送配置
	Hub struct {
		QueueSize         int // 事件队列长度
		WriteTimeout      int // 单连接写超时（秒）
		HeartbeatInterval int // 心跳间隔（秒）
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "sigma")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "sigma-backend")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.Sensor.Topic = getEnv("SENSOR_TOPIC", "sigma/#")

	cfg.Detection.RulesPath = getEnv("DETECTION_RULES_PATH", "")
	cfg.Detection.StateTTL = getEnvInt("STATE_TTL", 3600)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8000")
	cfg.HTTP.CORSOrigins = splitAndTrim(getEnv("CORS_ORIGINS",
		"http://localhost:3000,http://localhost:8000"))

	cfg.Hub.QueueSize = getEnvInt("HUB_QUEUE_SIZE", 256)
	cfg.Hub.WriteTimeout = getEnvInt("HUB_WRITE_TIMEOUT", 10)
	cfg.Hub.HeartbeatInterval = getEnvInt("HUB_HEARTBEAT_INTERVAL", 30)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
