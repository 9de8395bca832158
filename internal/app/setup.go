package app

import (
	"database/sql"
	"fmt"
	"os"

	"specline/internal/config"
	"specline/internal/db"
	"specline/internal/engine"
	"specline/internal/migrate"
)

// Open opens the workspace database and applies pending migrations.
func Open(workspace string) (*sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ResolveConfig loads specline.yml from the workspace, falling back to
// defaults when the file is absent. SPECLINE_JWT_SECRET overrides the file
// so secrets stay out of checked-in config.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if secret := os.Getenv("SPECLINE_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	return cfg, nil
}

// NewEngine wires a ready engine for the workspace. The caller owns the
// returned connection.
func NewEngine(workspace string) (*sql.DB, engine.Engine, error) {
	cfg, err := ResolveConfig(workspace)
	if err != nil {
		return nil, engine.Engine{}, err
	}
	conn, err := Open(workspace)
	if err != nil {
		return nil, engine.Engine{}, err
	}
	return conn, engine.New(conn, cfg), nil
}

// InitWorkspace seeds a default specline.yml and the database directory.
// Refuses to overwrite an existing config.
func InitWorkspace(workspace string) (string, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return "", err
	}
	path := config.Path(workspace)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
		return "", err
	}
	conn, err := Open(workspace)
	if err != nil {
		return "", err
	}
	conn.Close()
	return path, nil
}
