// config описывает настройки сервиса авторизации и загружает их из YAML
// и переменных окружения через cleanenv.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Режимы отзыва refresh-токенов.
const (
	RevocationOff   = "off"
	RevocationStore = "store"
	RevocationRedis = "redis"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config — настройки agrichain-auth. Порядок источников описан у Load.
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	GRPC     GRPCConfig    `yaml:"grpc"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host         string   `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port         string   `yaml:"port" env:"HTTP_PORT" env-default:"5000"`
	MaxBodyBytes int64    `yaml:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" env-default:"1048576"`
	CORSOrigins  []string `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS" env-default:"*"`
}

// GRPCConfig описывает сетевые настройки внутреннего gRPC-сервера.
// Булевы флаги без env-default: cleanenv подставляет дефолт поверх false из YAML.
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled" env:"GRPC_ENABLED"`
	Host    string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port    string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	// RefreshSecret — ключ подписи refresh-токенов; пустой -> используется JWTSecret.
	RefreshSecret   string        `yaml:"refresh_secret" env:"REFRESH_SECRET"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"agrichain-auth"`
	Audience        []string      `yaml:"audience" env:"AUDIENCE" env-default:"agrichain-api"`
	Leeway          time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"0s"`
	Revocation      string        `yaml:"revocation" env:"REVOCATION" env-default:"off"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// RefreshKey возвращает ключ подписи refresh-токенов.
func (a AuthConfig) RefreshKey() string {
	if a.RefreshSecret != "" {
		return a.RefreshSecret
	}

	return a.JWTSecret
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	Driver      string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	Migrate     bool   `yaml:"migrate" env:"DB_MIGRATE"`
}

// RedisConfig — подключение к Redis; нужно только при auth.revocation=redis.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
}

// Validate проверяет согласованность значений, которые cleanenv проверить не может.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case DriverPostgres, DriverMongo:
	default:
		errs = append(errs, fmt.Errorf("db.driver: unknown driver %q", c.DB.Driver))
	}

	switch c.Auth.Revocation {
	case RevocationOff, RevocationStore:
	case RevocationRedis:
		if c.Redis.RedisURL == "" {
			errs = append(errs, errors.New("redis.redis_url: required when auth.revocation=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.revocation: unknown mode %q", c.Auth.Revocation))
	}

	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.access_token_ttl: must be positive"))
	}

	if c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.refresh_token_ttl: must be positive"))
	}

	if c.Auth.Leeway < 0 {
		errs = append(errs, errors.New("auth.leeway: must not be negative"))
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost: %d out of range [4, 31]", c.Auth.BcryptCost))
	}

	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("http.max_body_bytes: must be positive"))
	}

	return errors.Join(errs...)
}

// MustLoad вызывает Load и паникует при ошибке. Для main.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load читает конфигурацию и проверяет её через Validate.
// Файл ищется так: path, затем $CONFIG_PATH, затем ./local.yaml.
// Переменные окружения всегда применяются поверх файла; без файла
// конфигурация собирается только из окружения.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := read(resolvePath(path), &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

const localConfig = "local.yaml"

// resolvePath возвращает путь к файлу конфигурации или "", если файла нет.
func resolvePath(explicit string) string {
	switch {
	case explicit != "":
		return explicit
	case os.Getenv("CONFIG_PATH") != "":
		return os.Getenv("CONFIG_PATH")
	}

	if st, err := os.Stat(localConfig); err == nil && !st.IsDir() {
		return localConfig
	}
	return ""
}

func read(file string, cfg *Config) error {
	if file == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
		return nil
	}

	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("config file does not exist: %q: %w", file, err)
	}
	// ReadConfig сам накладывает env поверх YAML.
	if err := cleanenv.ReadConfig(file, cfg); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}
