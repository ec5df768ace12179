package config

import (
	"fmt"
	"os"
	"strconv"
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

// Config pillbox-backend 服务配置
type Config struct {
	HTTP struct {
		Addr string
	}
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 药盒服务特定配置
	Pillbox struct {
		Topics struct {
			Partition   string // 药仓取药主题前缀，如 "pillbox/partition"（实际订阅 partition1..4）
			Temperature string // 温度主题，如 "pillbox/temperature"
			Oximeter    string // 血氧主题，如 "pillbox/oximeter"
			Schedule    string // 服药计划主题前缀，如 "pillbox/schedule"
		}
		SlotCount int    // 药仓数量（默认 4）
		UserID    int    // 当前绑定用户（单用户设备）
		Timezone  string // 本地时区，如 "Asia/Kolkata"
	}

	// 外部模型推理服务配置
	Inference struct {
		BaseURL string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() *Config {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "health_vitals")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "pillbox-backend")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.Pillbox.Topics.Partition = getEnv("PILLBOX_TOPIC_PARTITION", "pillbox/partition")
	cfg.Pillbox.Topics.Temperature = getEnv("PILLBOX_TOPIC_TEMPERATURE", "pillbox/temperature")
	cfg.Pillbox.Topics.Oximeter = getEnv("PILLBOX_TOPIC_OXIMETER", "pillbox/oximeter")
	cfg.Pillbox.Topics.Schedule = getEnv("PILLBOX_TOPIC_SCHEDULE", "pillbox/schedule")
	cfg.Pillbox.SlotCount = parseInt(getEnv("PILLBOX_SLOT_COUNT", "4"), 4)
	cfg.Pillbox.UserID = parseInt(getEnv("PILLBOX_USER_ID", "1"), 1)
	cfg.Pillbox.Timezone = getEnv("PILLBOX_TIMEZONE", "Asia/Kolkata")

	cfg.Inference.BaseURL = getEnv("INFERENCE_BASE_URL", "http://localhost:9000")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
