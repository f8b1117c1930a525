package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	SoilAPIBaseURL string
	SoilAPITimeout time.Duration

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	LiveEnabled        bool
	LiveInterval       time.Duration
	LivePolicy         string
	SimulationEnabled  bool
	SimulationInterval time.Duration
	SimulationPolicy   string

	CacheBackend string // "in_memory", "memcached" or "redis"
	CacheTTL     time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers      []string
	KafkaTopic        string
	KafkaWriteTimeout time.Duration

	RequestTimeout     time.Duration
	CORSAllowedOrigins []string

	DegradedWindow      time.Duration
	DegradedFallbackPct int

	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	SoilAPI struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"soil_api"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	CircuitBreaker struct {
		Enabled          bool   `yaml:"enabled"`
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Schedule struct {
		LiveEnabled        *bool  `yaml:"live_enabled"`
		LiveInterval       string `yaml:"live_interval"`
		LivePolicy         string `yaml:"live_policy"`
		SimulationEnabled  *bool  `yaml:"simulation_enabled"`
		SimulationInterval string `yaml:"simulation_interval"`
		SimulationPolicy   string `yaml:"simulation_policy"`
	} `yaml:"schedule"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Alerts struct {
		Kafka struct {
			Brokers      []string `yaml:"brokers"`
			Topic        string   `yaml:"topic"`
			WriteTimeout string   `yaml:"write_timeout"`
		} `yaml:"kafka"`
	} `yaml:"alerts"`

	HTTP struct {
		RequestTimeout     string   `yaml:"request_timeout"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"http"`

	Lifecycle struct {
		DegradedWindow      string `yaml:"degraded_window"`
		DegradedFallbackPct int    `yaml:"degraded_fallback_pct"`
	} `yaml:"lifecycle"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev). Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes, applying env overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.SoilAPIBaseURL = strings.TrimSpace(os.Getenv("SOIL_API_BASE_URL"))
	if cfg.SoilAPIBaseURL == "" {
		cfg.SoilAPIBaseURL = strings.TrimSpace(fc.SoilAPI.BaseURL)
	}
	if cfg.SoilAPIBaseURL == "" {
		cfg.SoilAPIBaseURL = "http://localhost:5000"
	}
	cfg.SoilAPIBaseURL = strings.TrimRight(cfg.SoilAPIBaseURL, "/")
	cfg.SoilAPITimeout = parseDurationOrZero(fc.SoilAPI.Timeout, 5*time.Second)

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 2
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 200*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.CircuitBreakerEnabled = fc.CircuitBreaker.Enabled
	cfg.CircuitBreakerFailureThreshold = fc.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 3
	}
	cfg.CircuitBreakerSuccessThreshold = fc.CircuitBreaker.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 1
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.CircuitBreaker.Timeout, 2*time.Minute)

	cfg.LiveEnabled = boolOr(fc.Schedule.LiveEnabled, true)
	cfg.LiveInterval = parseDuration(fc.Schedule.LiveInterval, 30*time.Second)
	cfg.LivePolicy = strings.TrimSpace(strings.ToLower(fc.Schedule.LivePolicy))
	if cfg.LivePolicy == "" {
		cfg.LivePolicy = "soil_only"
	}
	cfg.SimulationEnabled = boolOr(fc.Schedule.SimulationEnabled, true)
	cfg.SimulationInterval = parseDuration(fc.Schedule.SimulationInterval, 3*time.Second)
	cfg.SimulationPolicy = strings.TrimSpace(strings.ToLower(fc.Schedule.SimulationPolicy))
	if cfg.SimulationPolicy == "" {
		cfg.SimulationPolicy = "combined"
	}

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 5*time.Minute)
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = strings.TrimSpace(fc.Cache.Redis.Addr)
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisPassword = fc.Cache.Redis.Password
	cfg.RedisDB = fc.Cache.Redis.DB

	cfg.KafkaBrokers = parseList(os.Getenv("KAFKA_BROKERS"))
	if len(cfg.KafkaBrokers) == 0 {
		cfg.KafkaBrokers = fc.Alerts.Kafka.Brokers
	}
	cfg.KafkaTopic = strings.TrimSpace(fc.Alerts.Kafka.Topic)
	cfg.KafkaWriteTimeout = parseDuration(fc.Alerts.Kafka.WriteTimeout, 5*time.Second)

	cfg.RequestTimeout = parseDuration(fc.HTTP.RequestTimeout, 5*time.Second)
	cfg.CORSAllowedOrigins = fc.HTTP.CORSAllowedOrigins
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 5*time.Minute)
	cfg.DegradedFallbackPct = fc.Lifecycle.DegradedFallbackPct
	if cfg.DegradedFallbackPct <= 0 {
		cfg.DegradedFallbackPct = 50
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 15*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero or negative durations are returned as-is so validate can reject them.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validate performs post-load validation. RequestTimeout is raised above SoilAPITimeout when needed.
func validate(cfg *Config) error {
	if cfg.SoilAPITimeout <= 0 {
		return fmt.Errorf("soil_api.timeout must be positive")
	}
	if !strings.HasPrefix(cfg.SoilAPIBaseURL, "http://") && !strings.HasPrefix(cfg.SoilAPIBaseURL, "https://") {
		return fmt.Errorf("soil_api.base_url must be an http(s) URL, got %q", cfg.SoilAPIBaseURL)
	}
	if cfg.RequestTimeout <= cfg.SoilAPITimeout {
		cfg.RequestTimeout = cfg.SoilAPITimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached", "redis":
	default:
		return fmt.Errorf("cache.backend must be in_memory, memcached or redis, got %q", cfg.CacheBackend)
	}
	for _, p := range []string{cfg.LivePolicy, cfg.SimulationPolicy} {
		switch p {
		case "soil_only", "combined":
		default:
			return fmt.Errorf("schedule policy must be soil_only or combined, got %q", p)
		}
	}
	if cfg.KafkaTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("alerts.kafka.brokers required when alerts.kafka.topic is set")
	}
	if cfg.DegradedFallbackPct > 100 {
		return fmt.Errorf("lifecycle.degraded_fallback_pct must be <= 100, got %d", cfg.DegradedFallbackPct)
	}
	return nil
}
