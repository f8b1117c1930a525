package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_EnvFileNotFound(t *testing.T) {
	t.Setenv("ENV_NAME", "missing")
	chdirTemp(t)

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing config file, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want config file not found", err)
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	t.Setenv("ENV_NAME", "")
	t.Setenv("SOIL_API_BASE_URL", "")
	dir := chdirTemp(t)
	writeEnvFile(t, dir, minimalEnvYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SoilAPIBaseURL != "http://sensor.example.com:5000" {
		t.Errorf("SoilAPIBaseURL = %q, want trailing slash trimmed", cfg.SoilAPIBaseURL)
	}
	if cfg.SoilAPITimeout != 2*time.Second {
		t.Errorf("SoilAPITimeout = %v, want 2s", cfg.SoilAPITimeout)
	}
	if cfg.LiveInterval != 30*time.Second {
		t.Errorf("LiveInterval = %v, want 30s", cfg.LiveInterval)
	}
	if cfg.SimulationInterval != 3*time.Second {
		t.Errorf("SimulationInterval = %v, want 3s", cfg.SimulationInterval)
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv("SOIL_API_BASE_URL", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Parse([]byte("server:\n  port: \"9090\"\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.SoilAPIBaseURL != "http://localhost:5000" {
		t.Errorf("SoilAPIBaseURL = %q, want default", cfg.SoilAPIBaseURL)
	}
	if !cfg.LiveEnabled || !cfg.SimulationEnabled {
		t.Errorf("schedules enabled = %v/%v, want both true by default", cfg.LiveEnabled, cfg.SimulationEnabled)
	}
	if cfg.LivePolicy != "soil_only" || cfg.SimulationPolicy != "combined" {
		t.Errorf("policies = %q/%q, want soil_only/combined", cfg.LivePolicy, cfg.SimulationPolicy)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want in_memory", cfg.CacheBackend)
	}
	if cfg.RequestTimeout <= cfg.SoilAPITimeout {
		t.Errorf("RequestTimeout = %v, want > SoilAPITimeout %v", cfg.RequestTimeout, cfg.SoilAPITimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
}

func TestParse_InvalidDurationFallsBackToDefault(t *testing.T) {
	t.Setenv("SOIL_API_BASE_URL", "")
	yml := `
schedule:
  live_interval: "soon"
  simulation_interval: "-1s"
`
	cfg, err := Parse([]byte(yml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.LiveInterval != 30*time.Second {
		t.Errorf("LiveInterval = %v, want default 30s", cfg.LiveInterval)
	}
	if cfg.SimulationInterval != 3*time.Second {
		t.Errorf("SimulationInterval = %v, want default 3s", cfg.SimulationInterval)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("SOIL_API_BASE_URL", "https://env.example.com/")
	t.Setenv("CACHE_BACKEND", " Redis ")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Parse([]byte(minimalEnvYAML + "alerts:\n  kafka:\n    topic: soil-alerts\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.SoilAPIBaseURL != "https://env.example.com" {
		t.Errorf("SoilAPIBaseURL = %q, want env override", cfg.SoilAPIBaseURL)
	}
	if cfg.CacheBackend != "redis" {
		t.Errorf("CacheBackend = %q, want redis", cfg.CacheBackend)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("RedisAddr = %q, want redis:6379", cfg.RedisAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v, want [k1:9092 k2:9092]", cfg.KafkaBrokers)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	t.Setenv("SOIL_API_BASE_URL", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")
	tests := []struct {
		name    string
		yml     string
		wantErr string
	}{
		{
			name:    "zero soil api timeout",
			yml:     "soil_api:\n  timeout: \"0s\"\n",
			wantErr: "soil_api.timeout",
		},
		{
			name:    "non http base url",
			yml:     "soil_api:\n  base_url: \"ftp://sensor\"\n",
			wantErr: "soil_api.base_url",
		},
		{
			name:    "unknown cache backend",
			yml:     "cache:\n  backend: \"disk\"\n",
			wantErr: "cache.backend",
		},
		{
			name:    "unknown policy",
			yml:     "schedule:\n  live_policy: \"strict\"\n",
			wantErr: "policy",
		},
		{
			name:    "kafka topic without brokers",
			yml:     "alerts:\n  kafka:\n    topic: \"soil-alerts\"\n",
			wantErr: "alerts.kafka.brokers",
		},
		{
			name:    "fallback pct above 100",
			yml:     "lifecycle:\n  degraded_fallback_pct: 150\n",
			wantErr: "degraded_fallback_pct",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yml))
			if err == nil {
				t.Fatalf("Parse() expected error, got config %+v", cfg)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want message containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "parse config file") {
		t.Errorf("Parse() error = %v, want parse config file", err)
	}
}

const minimalEnvYAML = `
server:
  port: "8080"
soil_api:
  base_url: "http://sensor.example.com:5000/"
  timeout: "2s"
reliability:
  retry_max_attempts: 2
  retry_base_delay: "100ms"
  retry_max_delay: "1s"
schedule:
  live_interval: "30s"
  simulation_interval: "3s"
shutdown:
  timeout: "10s"
`

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	return dir
}

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}
