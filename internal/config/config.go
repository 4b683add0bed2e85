package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Host              string           `json:"host"`
	Port              int              `json:"port"`
	JWTSecret         string           `json:"jwt_secret"`
	SessionTTLMinutes int              `json:"session_ttl_minutes"`
	AuthRateWindowMS  int              `json:"auth_rate_window_ms"`
	CORSAllowlist     []string         `json:"cors_allowlist"`
	LogConfig         logger.LogConfig `json:"log_config"`
	// PermissionLog is optional; without it the permission store is
	// memory-only for the process lifetime.
	PermissionLog *PermissionLogConfig `json:"permission_log"`
	Compaction    CompactionConfig     `json:"compaction"`
}

type PermissionLogConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type CompactionConfig struct {
	Enable bool   `json:"enable"`
	Spec   string `json:"spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnvOverrides(&cfg)

	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.SessionTTLMinutes == 0 {
		cfg.SessionTTLMinutes = 60
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.PermissionLog != nil && cfg.PermissionLog.Type == "" {
		return nil, fmt.Errorf("permission_log.type is required when permission_log is set")
	}
	if cfg.Compaction.Enable {
		if cfg.PermissionLog == nil {
			return nil, fmt.Errorf("compaction requires a permission_log")
		}
		if cfg.Compaction.Spec == "" {
			cfg.Compaction.Spec = "0 3 * * *"
		}
	}
	return &cfg, nil
}

// applyEnvOverrides honors the deployment environment of the original
// server: HOST/PORT for the listener and PERMISSION_LOG as a shortcut for
// a file-backed permission log.
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Port = parsed
		}
	}
	if path := os.Getenv("PERMISSION_LOG"); path != "" && cfg.PermissionLog == nil {
		cfg.PermissionLog = &PermissionLogConfig{
			Type: "local",
			Data: map[string]interface{}{"path": path},
		}
	}
}
