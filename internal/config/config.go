package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the listener, document root and backend settings.
type ServerConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr" json:"listen_addr"`
	BackendURL   string        `mapstructure:"backend_url" json:"backend_url"`
	StaticRoot   string        `mapstructure:"static_root" json:"static_root"`
	ProxyTimeout time.Duration `mapstructure:"proxy_timeout" json:"proxy_timeout"`
	GzipEnabled  bool          `mapstructure:"gzip_enabled" json:"gzip_enabled"`
	HSTSEnabled  bool          `mapstructure:"hsts_enabled" json:"hsts_enabled"`
}

// SecurityConfig holds the decision-pipeline settings.
type SecurityConfig struct {
	IPBlockingEnabled          bool          `mapstructure:"ip_blocking_enabled" json:"ip_blocking_enabled"`
	BlockDuration              time.Duration `mapstructure:"block_duration" json:"block_duration"`
	RateLimitingEnabled        bool          `mapstructure:"rate_limiting_enabled" json:"rate_limiting_enabled"`
	MaxRequestsPerMinute       int           `mapstructure:"max_requests_per_minute" json:"max_requests_per_minute"`
	MaxRequestsPerHour         int           `mapstructure:"max_requests_per_hour" json:"max_requests_per_hour"`
	ThreatDetectionEnabled     bool          `mapstructure:"threat_detection_enabled" json:"threat_detection_enabled"`
	SuspiciousRequestThreshold int           `mapstructure:"suspicious_request_threshold" json:"suspicious_request_threshold"`
	ThreatScoreThreshold       int           `mapstructure:"threat_score_threshold" json:"threat_score_threshold"`
}

// MonitorConfig holds attack-monitor and persistence settings.
type MonitorConfig struct {
	EnableDetailedLogging bool   `mapstructure:"enable_detailed_logging" json:"enable_detailed_logging"`
	LogDir                string `mapstructure:"log_dir" json:"log_dir"`
	RetentionDays         int    `mapstructure:"retention_days" json:"retention_days"`
	HistorySize           int    `mapstructure:"history_size" json:"history_size"`
	RedisAddr             string `mapstructure:"redis_addr" json:"redis_addr"`
	AlertChannel          string `mapstructure:"alert_channel" json:"alert_channel"`
}

// Config is the full gateway configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Security SecurityConfig `mapstructure:"security" json:"security"`
	Monitor  MonitorConfig  `mapstructure:"monitor" json:"monitor"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.backend_url", "http://127.0.0.1:8097")
	v.SetDefault("server.static_root", "data/htdocs")
	v.SetDefault("server.proxy_timeout", "30s")
	v.SetDefault("server.gzip_enabled", true)
	v.SetDefault("server.hsts_enabled", true)

	v.SetDefault("security.ip_blocking_enabled", true)
	v.SetDefault("security.block_duration", "1h")
	v.SetDefault("security.rate_limiting_enabled", true)
	v.SetDefault("security.max_requests_per_minute", 100)
	v.SetDefault("security.max_requests_per_hour", 1000)
	v.SetDefault("security.threat_detection_enabled", true)
	v.SetDefault("security.suspicious_request_threshold", 5)
	v.SetDefault("security.threat_score_threshold", 10)

	v.SetDefault("monitor.enable_detailed_logging", true)
	v.SetDefault("monitor.log_dir", "logs")
	v.SetDefault("monitor.retention_days", 7)
	v.SetDefault("monitor.history_size", 1000)
	v.SetDefault("monitor.redis_addr", "")
	v.SetDefault("monitor.alert_channel", "alerts")
}

// Load reads the configuration from an optional YAML file and EDGEGATE_*
// environment variables. An empty path means defaults + environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EDGEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot operate with.
func (c *Config) Validate() error {
	if c.Security.MaxRequestsPerMinute <= 0 {
		return fmt.Errorf("security.max_requests_per_minute must be positive, got %d", c.Security.MaxRequestsPerMinute)
	}
	if c.Security.MaxRequestsPerHour <= 0 {
		return fmt.Errorf("security.max_requests_per_hour must be positive, got %d", c.Security.MaxRequestsPerHour)
	}
	if c.Security.BlockDuration <= 0 {
		return fmt.Errorf("security.block_duration must be positive, got %s", c.Security.BlockDuration)
	}
	if c.Security.SuspiciousRequestThreshold <= 0 {
		return fmt.Errorf("security.suspicious_request_threshold must be positive, got %d", c.Security.SuspiciousRequestThreshold)
	}
	if c.Server.ProxyTimeout <= 0 {
		return fmt.Errorf("server.proxy_timeout must be positive, got %s", c.Server.ProxyTimeout)
	}
	if c.Monitor.HistorySize <= 0 {
		return fmt.Errorf("monitor.history_size must be positive, got %d", c.Monitor.HistorySize)
	}
	return nil
}
