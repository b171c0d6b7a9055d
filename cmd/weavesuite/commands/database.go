package commands

import (
	"database/sql"

	"github.com/weavesuite/weavesuite/config"
	"github.com/weavesuite/weavesuite/db"
	"github.com/weavesuite/weavesuite/errors"
	"github.com/weavesuite/weavesuite/logger"
)

// openDatabase opens and migrates the database. If dbPath is empty the
// configured path is used.
func openDatabase(cfg *config.Config, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	if dbPath == "" {
		dbPath = "weavesuite.db"
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

// loadConfig wraps config.Load with a uniform error message for commands.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	return cfg, nil
}
