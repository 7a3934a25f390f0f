package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server       ServerConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	OrderService OrderServiceConfig
	Database     DatabaseConfig
	View         ViewConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
}

type TopicConfig struct {
	Orders    string
	LineItems string
	Catalog   string
}

// OrderServiceConfig points at the authoritative order/catalog service.
type OrderServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DatabaseConfig is only used by the development order service (sqlite).
type DatabaseConfig struct {
	Path string
}

// ViewConfig scopes the board: which vendor's orders, and optionally a single
// fulfillment counter.
type ViewConfig struct {
	VendorID  string
	CounterID string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // SSE connections stay open
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled: getEnvBool("REDIS_ENABLED", true),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			GroupID: getEnv("KAFKA_GROUP_ID", "orderboard-group"),
			Topics: TopicConfig{
				Orders:    getEnv("KAFKA_TOPIC_ORDERS", "order-events"),
				LineItems: getEnv("KAFKA_TOPIC_LINE_ITEMS", "line-item-events"),
				Catalog:   getEnv("KAFKA_TOPIC_CATALOG", "catalog-events"),
			},
		},
		OrderService: OrderServiceConfig{
			BaseURL: getEnv("ORDER_SERVICE_URL", "http://localhost:8090"),
			Timeout: time.Duration(getEnvInt("ORDER_SERVICE_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Database: DatabaseConfig{
			Path: getEnv("SQLITE_PATH", "file:ordersvc.db?cache=shared"),
		},
		View: ViewConfig{
			VendorID:  getEnv("VENDOR_ID", ""),
			CounterID: getEnv("COUNTER_ID", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
