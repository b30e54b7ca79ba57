// Пакет config — загрузка и валидация конфигурации портала заявок
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации портала.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальное число подключений в пуле
	DBMaxConns int
	// Максимальное время жизни подключения в пуле
	DBConnLifetime time.Duration

	// --- Аутентификация ---

	// Секрет подписи JWT (HS256)
	JWTSecret string
	// Время жизни access-токена
	TokenTTL time.Duration
	// Стоимость bcrypt при хешировании паролей
	BcryptCost int

	// --- Кэш заявок ---

	// Максимальное число записей в LRU-кэше заявок
	CacheSize int
	// Время жизни записи кэша
	CacheTTL time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// AP_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("AP_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("AP_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("AP_PORT: значение %d вне допустимого диапазона", cfg.Port)
	}

	// AP_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("AP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("AP_LOG_LEVEL: %w", err)
	}

	// AP_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("AP_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AP_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// AP_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("AP_DB_HOST")
	if err != nil {
		return nil, err
	}

	// AP_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("AP_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("AP_DB_PORT: %w", err)
	}

	// AP_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("AP_DB_NAME")
	if err != nil {
		return nil, err
	}

	// AP_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("AP_DB_USER")
	if err != nil {
		return nil, err
	}

	// AP_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("AP_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// AP_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("AP_DB_SSL_MODE", "disable")
	switch cfg.DBSSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return nil, fmt.Errorf("AP_DB_SSL_MODE: недопустимое значение %q", cfg.DBSSLMode)
	}

	// AP_DB_MAX_CONNS — размер пула подключений (по умолчанию 10)
	cfg.DBMaxConns, err = getEnvInt("AP_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("AP_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("AP_DB_MAX_CONNS: значение %d должно быть положительным", cfg.DBMaxConns)
	}

	// AP_DB_CONN_LIFETIME — время жизни подключения (по умолчанию 30m)
	cfg.DBConnLifetime, err = getEnvDuration("AP_DB_CONN_LIFETIME", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AP_DB_CONN_LIFETIME: %w", err)
	}

	// --- Аутентификация ---

	// AP_JWT_SECRET — обязательный
	cfg.JWTSecret, err = getEnvRequired("AP_JWT_SECRET")
	if err != nil {
		return nil, err
	}

	// AP_TOKEN_TTL — время жизни токена (по умолчанию 12h)
	cfg.TokenTTL, err = getEnvDuration("AP_TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("AP_TOKEN_TTL: %w", err)
	}

	// AP_BCRYPT_COST — стоимость bcrypt (по умолчанию 10)
	cfg.BcryptCost, err = getEnvInt("AP_BCRYPT_COST", 10)
	if err != nil {
		return nil, fmt.Errorf("AP_BCRYPT_COST: %w", err)
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("AP_BCRYPT_COST: значение %d вне допустимого диапазона 4-31", cfg.BcryptCost)
	}

	// --- Кэш заявок ---

	// AP_CACHE_SIZE — размер LRU-кэша (по умолчанию 1024)
	cfg.CacheSize, err = getEnvInt("AP_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("AP_CACHE_SIZE: %w", err)
	}

	// AP_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("AP_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AP_CACHE_TTL: %w", err)
	}

	// --- Graceful shutdown ---

	// AP_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 10s)
	cfg.ShutdownTimeout, err = getEnvDuration("AP_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AP_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает DSN подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger создаёт slog.Logger в соответствии с конфигурацией
// и устанавливает его логгером по умолчанию.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной или значение по умолчанию.
func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvRequired возвращает значение обязательной переменной или ошибку.
func getEnvRequired(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s: обязательная переменная не задана", key)
	}
	return v, nil
}

// getEnvInt разбирает целочисленную переменную со значением по умолчанию.
func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое %q", v)
	}
	return n, nil
}

// getEnvDuration разбирает duration-переменную со значением по умолчанию.
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность %q", v)
	}
	return d, nil
}

// parseLogLevel конвертирует строку в slog.Level.
func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", s)
}
