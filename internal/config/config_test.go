package config

import (
	"log/slog"
	"testing"
	"time"
)

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"AP_DB_HOST":     "localhost",
		"AP_DB_NAME":     "portal",
		"AP_DB_USER":     "portal",
		"AP_DB_PASSWORD": "secret",
		"AP_JWT_SECRET":  "test-secret",
	}
}

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, ожидается disable", cfg.DBSSLMode)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Errorf("TokenTTL = %v, ожидается 12h", cfg.TokenTTL)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, ожидается 10", cfg.BcryptCost)
	}
	if cfg.DBMaxConns != 10 {
		t.Errorf("DBMaxConns = %d, ожидается 10", cfg.DBMaxConns)
	}
	if cfg.DBConnLifetime != 30*time.Minute {
		t.Errorf("DBConnLifetime = %v, ожидается 30m", cfg.DBConnLifetime)
	}
	if cfg.CacheSize != 1024 {
		t.Errorf("CacheSize = %d, ожидается 1024", cfg.CacheSize)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	envs := minimalEnvs()
	delete(envs, "AP_JWT_SECRET")
	setEnvs(t, envs)
	t.Setenv("AP_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() без AP_JWT_SECRET = nil, хотели ошибку")
	}
}

func TestLoad_Overrides(t *testing.T) {
	envs := minimalEnvs()
	envs["AP_PORT"] = "9000"
	envs["AP_LOG_LEVEL"] = "debug"
	envs["AP_LOG_FORMAT"] = "text"
	envs["AP_TOKEN_TTL"] = "30m"
	envs["AP_CACHE_TTL"] = "1m"
	envs["AP_DB_MAX_CONNS"] = "25"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, ожидается 9000", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, ожидается text", cfg.LogFormat)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL = %v, ожидается 30m", cfg.TokenTTL)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v, ожидается 1m", cfg.CacheTTL)
	}
	if cfg.DBMaxConns != 25 {
		t.Errorf("DBMaxConns = %d, ожидается 25", cfg.DBMaxConns)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "нечисловой порт", key: "AP_PORT", value: "пять"},
		{name: "порт вне диапазона", key: "AP_PORT", value: "70000"},
		{name: "неизвестный уровень логов", key: "AP_LOG_LEVEL", value: "verbose"},
		{name: "неизвестный формат логов", key: "AP_LOG_FORMAT", value: "xml"},
		{name: "некорректный TTL", key: "AP_TOKEN_TTL", value: "скоро"},
		{name: "bcrypt cost вне диапазона", key: "AP_BCRYPT_COST", value: "99"},
		{name: "неизвестный режим SSL", key: "AP_DB_SSL_MODE", value: "maybe"},
		{name: "нулевой размер пула", key: "AP_DB_MAX_CONNS", value: "0"},
		{name: "некорректное время жизни подключения", key: "AP_DB_CONN_LIFETIME", value: "вечно"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, minimalEnvs())
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() с %s=%q = nil, хотели ошибку", tt.key, tt.value)
			}
		})
	}
}
