// Package config provides layered configuration loading.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the cardea server.
type Config struct {
	Server    Server    `yaml:"server"`
	DB        DB        `yaml:"db"`
	Logging   Logging   `yaml:"logging"`
	Engine    Engine    `yaml:"engine"`
	Heartbeat Heartbeat `yaml:"heartbeat"`
	NATS      NATS      `yaml:"nats"`
}

// Server holds HTTP server configuration.
type Server struct {
	Addr string `yaml:"addr"`
}

// DB holds sqlite configuration.
type DB struct {
	Path string `yaml:"path"`
	Env  string `yaml:"env"` // "dev" | "prod"; dev runs the seeder on boot

	// WriteQueueDepth caps how many writes may queue on the single-writer
	// worker before callers block.
	WriteQueueDepth int `yaml:"write_queue_depth"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// Engine tunes the access evaluation pipeline.
type Engine struct {
	// CollaboratorTimeout bounds each store call during an evaluation.
	CollaboratorTimeout time.Duration `yaml:"collaborator_timeout"`

	// StrictAudit makes a failed audit write deny the access attempt
	// instead of surfacing a warning next to the decision.
	StrictAudit bool `yaml:"strict_audit"`
}

// Heartbeat holds controller heartbeat retention settings.
type Heartbeat struct {
	RetentionDays      int `yaml:"retention_days"`       // 0 = keep forever
	PruneIntervalHours int `yaml:"prune_interval_hours"` // default 6
}

// NATS holds decision event publishing configuration.
// An empty URL disables publishing.
type NATS struct {
	URL string `yaml:"url"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server:  Server{Addr: ":8080"},
		DB:      DB{Path: "./data/cardea.db", Env: "dev", WriteQueueDepth: 256},
		Logging: Logging{Level: "info"},
		Engine: Engine{
			CollaboratorTimeout: 3 * time.Second,
		},
		Heartbeat: Heartbeat{
			RetentionDays:      30,
			PruneIntervalHours: 6,
		},
	}
}
