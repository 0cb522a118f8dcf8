package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 检查默认值
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected DB_HOST default 'localhost', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Expected DB_PORT default 5432, got %d", cfg.Database.Port)
	}

	if cfg.Database.Database != "sigma" {
		t.Errorf("Expected DB_NAME default 'sigma', got '%s'", cfg.Database.Database)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Expected MQTT_BROKER default 'tcp://localhost:1883', got '%s'", cfg.MQTT.Broker)
	}

	if cfg.Sensor.Topic != "sigma/#" {
		t.Errorf("Expected SENSOR_TOPIC default 'sigma/#', got '%s'", cfg.Sensor.Topic)
	}

	if cfg.HTTP.Addr != ":8000" {
		t.Errorf("Expected HTTP_ADDR default ':8000', got '%s'", cfg.HTTP.Addr)
	}

	if cfg.Hub.QueueSize != 256 {
		t.Errorf("Expected HUB_QUEUE_SIZE default 256, got %d", cfg.Hub.QueueSize)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}

	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Errorf("Expected 2 default CORS origins, got %d", len(cfg.HTTP.CORSOrigins))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("MQTT_BROKER", "tcp://broker:1883")
	os.Setenv("SENSOR_TOPIC", "sigma/warehouse/#")
	os.Setenv("HUB_QUEUE_SIZE", "512")
	os.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("DB_PORT")
		os.Unsetenv("MQTT_BROKER")
		os.Unsetenv("SENSOR_TOPIC")
		os.Unsetenv("HUB_QUEUE_SIZE")
		os.Unsetenv("CORS_ORIGINS")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Database.Host != "test-host" {
		t.Errorf("Expected DB_HOST 'test-host', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.Port != 5433 {
		t.Errorf("Expected DB_PORT 5433, got %d", cfg.Database.Port)
	}

	if cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("Expected MQTT_BROKER 'tcp://broker:1883', got '%s'", cfg.MQTT.Broker)
	}

	if cfg.Sensor.Topic != "sigma/warehouse/#" {
		t.Errorf("Expected SENSOR_TOPIC 'sigma/warehouse/#', got '%s'", cfg.Sensor.Topic)
	}

	if cfg.Hub.QueueSize != 512 {
		t.Errorf("Expected HUB_QUEUE_SIZE 512, got %d", cfg.Hub.QueueSize)
	}

	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[0] != "http://a.example" {
		t.Errorf("Unexpected CORS origins: %v", cfg.HTTP.CORSOrigins)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	os.Setenv("DB_PORT", "not-a-number")
	defer os.Unsetenv("DB_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Expected DB_PORT fallback 5432, got %d", cfg.Database.Port)
	}
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "sigma",
		Password: "secret",
		Database: "sigma",
		SSLMode:  "disable",
	}

	expected := "host=db port=5432 user=sigma password=secret dbname=sigma sslmode=disable"
	if dsn := cfg.GetDSN(); dsn != expected {
		t.Errorf("Unexpected DSN: %s", dsn)
	}
}
