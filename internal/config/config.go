// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env        string `yaml:"env" env:"STAGE" env-required:"true"`
	DB         `yaml:"db"`
	HTTPServer `yaml:"http_server"`
	RedisConnection `yaml:"redis_connection"`
	SMTP       `yaml:"smtp"`
	Stripe     `yaml:"stripe"`
	JWTToken   `yaml:"jwttoken"`
}

// DB структура для настройки подключения к PostgreSQL
type DB struct {
	Host     string `yaml:"host" env:"DB_HOST" env-required:"true"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Username string `yaml:"username" env:"DB_USERNAME" env-required:"true"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env:"DB_NAME" env-required:"true"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DBRedis      int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"10s"`
}

// SMTP структура для настройки почтового транспорта уведомлений
type SMTP struct {
	SMTPHost string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"smtp_port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPass string `yaml:"smtp_pass" env:"SMTP_PASS"`
}

// Stripe структура для работы с платёжным провайдером
type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET" env-required:"true"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET" env-required:"true"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	PrivateKey string        `yaml:"private_key" env:"PRIVATE_KEY" env-required:"true"`
	TokenTTL   time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// MustLoad загружает конфиг из файла по пути CONFIG_PATH с перекрытием
// значений из переменных окружения. Завершает процесс, если обязательные
// параметры отсутствуют.
func MustLoad() *Config {
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Fatalf("file: %s - does not exist", configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("cannot read config: %s", err)
		}
		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("cannot read config from environment: %s", err)
	}
	return &cfg
}

// DSN собирает строку подключения к PostgreSQL из параметров DB.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.Username, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}
