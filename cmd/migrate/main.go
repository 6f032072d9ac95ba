package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/samirrijal/evacguide/internal/pkg/config"
	"github.com/samirrijal/evacguide/internal/pkg/logging"
)

// Applied in order by "up"; "down" runs the matching .down.sql files in reverse.
var migrations = []string{
	"001_init_extensions",
	"002_shelters",
}

const migrationsDir = "migrations/"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}
	_ = godotenv.Load()

	cfg, err := config.Load("evacguide-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		for _, name := range migrations {
			apply(ctx, pool, migrationsDir+name+".sql")
		}
	case "down":
		for i := len(migrations) - 1; i >= 0; i-- {
			path := migrationsDir + migrations[i] + ".down.sql"
			if _, err := os.Stat(path); os.IsNotExist(err) {
				slog.Info("no down migration, skipping", "migration", migrations[i])
				continue
			}
			apply(ctx, pool, path)
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}

	slog.Info("migrations complete", "direction", os.Args[1])
}

func apply(ctx context.Context, pool *pgxpool.Pool, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	if _, err := pool.Exec(ctx, string(data)); err != nil {
		log.Fatalf("exec %s: %v", path, err)
	}
	slog.Info("applied", "file", path)
}
