package config

import (
	"reflect"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.StorageBackend != StorageBackendNone {
		t.Errorf("StorageBackend = %q, want %q", cfg.StorageBackend, StorageBackendNone)
	}
	if cfg.MQBackend != MQBackendNone {
		t.Errorf("MQBackend = %q, want %q", cfg.MQBackend, MQBackendNone)
	}
	if cfg.JWT.TTLHours != 24*30 {
		t.Errorf("JWT.TTLHours = %d, want 30 days", cfg.JWT.TTLHours)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.AllowedOrigins)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("JWT_SECRET", "sekret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("MQ_BACKEND", "rabbitmq")

	cfg := LoadConfig()

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
	if !cfg.Database.UseSSL {
		t.Errorf("Database.UseSSL = false, want true")
	}
	if cfg.JWT.Secret != "sekret" {
		t.Errorf("JWT.Secret = %q", cfg.JWT.Secret)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if cfg.StorageBackend != StorageBackendMinio {
		t.Errorf("StorageBackend = %q", cfg.StorageBackend)
	}
	if cfg.MQBackend != MQBackendRabbitMQ {
		t.Errorf("MQBackend = %q", cfg.MQBackend)
	}
}
