package main

import (
	"os"

	"bookshelf/internal/config"
)

const defaultMigrationsDir = "db/migrations"

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return defaultMigrationsDir
}

// databaseDSN resolves the DSN the same way the server does: DB_DSN when set,
// otherwise built from the DB_* parts.
func databaseDSN() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.DatabaseDSN, nil
}
