package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "cardea.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return Config{}, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config validate: %w", err)
	}

	return cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg. Only non-empty env values
// override the current config; a set-but-unparseable value is an error rather
// than a silent fall-through to the default.
func loadEnv(cfg *Config) error {
	setString(&cfg.Server.Addr, "CARDEA_HTTP_ADDR")
	setString(&cfg.DB.Path, "CARDEA_DB_PATH")
	setString(&cfg.DB.Env, "CARDEA_ENV")
	setString(&cfg.Logging.Level, "CARDEA_LOG_LEVEL")
	setString(&cfg.NATS.URL, "NATS_URL")

	return errors.Join(
		setDuration(&cfg.Engine.CollaboratorTimeout, "CARDEA_COLLABORATOR_TIMEOUT"),
		setBool(&cfg.Engine.StrictAudit, "CARDEA_STRICT_AUDIT"),
		setInt(&cfg.Heartbeat.RetentionDays, "CARDEA_HEARTBEAT_RETENTION_DAYS"),
		setInt(&cfg.Heartbeat.PruneIntervalHours, "CARDEA_PRUNE_INTERVAL_HOURS"),
		setInt(&cfg.DB.WriteQueueDepth, "CARDEA_DB_QUEUE_DEPTH"),
	)
}

func validate(cfg *Config) error {
	env := strings.ToLower(strings.TrimSpace(cfg.DB.Env))
	if env != "dev" && env != "prod" {
		return fmt.Errorf("db.env must be dev or prod, got %q", cfg.DB.Env)
	}
	cfg.DB.Env = env

	if cfg.Engine.CollaboratorTimeout <= 0 {
		return fmt.Errorf("engine.collaborator_timeout must be positive, got %s", cfg.Engine.CollaboratorTimeout)
	}
	if cfg.Heartbeat.RetentionDays < 0 {
		return fmt.Errorf("heartbeat.retention_days must be >= 0, got %d", cfg.Heartbeat.RetentionDays)
	}

	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = d
	return nil
}
