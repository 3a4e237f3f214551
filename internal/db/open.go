// Package db owns the sqlite connection, schema migrations, and the
// single-writer transaction worker the stores submit their writes through.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Path string // e.g. "./data/cardea.db"
	Env  string // "dev" | "prod"
}

// connPragmas is applied on every connection. Foreign keys enforce the
// rules->doors reference, WAL plus NORMAL sync suits a single-process
// server, and the busy timeout absorbs the rare reader/writer overlap.
var connPragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// Open opens (creating if needed) the cardea database, verifies the
// connection, and applies pending migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = "./data/cardea.db"
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	conn, err := sql.Open("sqlite", DSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// One connection, always. sqlite serializes writers anyway; a pool only
	// adds SQLITE_BUSY failure modes.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, conn, logger); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("database ready", "path", cfg.Path, "env", cfg.Env)
	return conn, nil
}

// DSN builds a modernc.org/sqlite DSN for path with the standard pragmas.
// Exposed so tests can open in-memory databases with production settings;
// path may already carry URI parameters (mode=memory etc).
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_pragma=" + strings.Join(connPragmas, "&_pragma=")
}
