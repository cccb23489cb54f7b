package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/examtrace/vigil/internal/config"
	"github.com/examtrace/vigil/internal/database"
)

const usage = `usage: migrate <command>

commands:
  up         apply all pending migrations (default)
  down       roll back the most recent migration
  version    print the current schema version
  force <v>  overwrite the recorded version (recovery only)
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)

	// golang-migrate drives a plain database/sql connection, not the pgx
	// pool the relay itself runs on.
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	migrator, err := database.NewMigrator(db, "vigil")
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	switch command {
	case "up":
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		logger.Info("migrations applied",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)

	case "down":
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
		logger.Info("rolled back one migration")

	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		if dirty {
			return fmt.Errorf("schema version %d is dirty, repair it with force", version)
		}
		fmt.Println(version)

	case "force":
		raw := flag.Arg(1)
		if raw == "" {
			return fmt.Errorf("force needs a version argument")
		}
		version, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", raw, err)
		}
		if err := migrator.Force(version); err != nil {
			return fmt.Errorf("force migration failed: %w", err)
		}
		logger.Warn("schema version forced", slog.Int("version", version))

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	return nil
}
