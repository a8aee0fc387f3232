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
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	RateLimit               `yaml:"rate_limit"`
	Attendance              `yaml:"attendance"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	// TrainerTTL время жизни профиля тренера в кэше
	TrainerTTL time.Duration `yaml:"trainer_ttl" env-default:"10m"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ настройки публикации событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"attendance"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// RateLimit ограничение частоты запросов одного пользователя
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// Attendance параметры отметки посещений и проверки расписания
type Attendance struct {
	// ActiveWindow допуск в обе стороны от текущего момента при поиске активных тренировок
	ActiveWindow time.Duration `yaml:"active_window" env:"ATTENDANCE_ACTIVE_WINDOW" env-default:"15m"`
	// ConflictLookBack насколько раньше пакета искать существующие тренировки
	ConflictLookBack time.Duration `yaml:"conflict_look_back" env-default:"24h"`
	// TimeZone часовой пояс слотов шаблонов расписания
	TimeZone string `yaml:"time_zone" env:"ATTENDANCE_TIME_ZONE" env-default:"UTC"`
}

// Location возвращает часовой пояс слотов шаблонов.
func (a Attendance) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", a.TimeZone, err)
	}
	return loc, nil
}

// Load читает конфиг из файла path и переменных окружения.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", path)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if cfg.ActiveWindow <= 0 {
		return nil, fmt.Errorf("attendance.active_window must be positive, got %s", cfg.ActiveWindow)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad загружает конфиг из файла, указанного в CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

const redacted = "***"

func secret(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"  DB: %d\n"+
			"  TrainerTTL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"  Exchange: %s\n"+
			"RateLimit:\n"+
			"  RPS: %g\n"+
			"  Burst: %d\n"+
			"Attendance:\n"+
			"  ActiveWindow: %s\n"+
			"  ConflictLookBack: %s\n"+
			"  TimeZone: %s\n",
		c.Env,
		secret(c.StorageConnectionString),
		c.MigrationsPath,
		c.AddressRedis,
		secret(c.Password),
		c.DB,
		c.TrainerTTL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		secret(c.JWTSecretKey),
		c.TokenTTL,
		secret(c.URL),
		c.Exchange,
		c.RPS,
		c.Burst,
		c.ActiveWindow,
		c.ConflictLookBack,
		c.TimeZone,
	)
}
