package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	Database   DatabaseConfig
	JWT        JWTConfig
	MQ         MQConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type MQConfig struct {
	// Backend selects the broker: "none", "rabbitmq", or "pubsub".
	Backend  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "usermgmt"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "usermgmt_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	jwtConfig := JWTConfig{
		Secret:          getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TTL", 24*time.Hour),
		RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
	}

	mqConfig := MQConfig{
		Backend: getEnv("MQ_BACKEND", "none"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
		},
		PubSub: PubSubConfig{
			ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
		},
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database:   dbConfig,
		JWT:        jwtConfig,
		MQ:         mqConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
