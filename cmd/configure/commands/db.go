package commands

import (
	"fmt"
	"os"

	"github.com/benvon/todomvc-api/internal/config"
	"github.com/benvon/todomvc-api/internal/database"
)

func openDB() (*database.DB, error) {
	url, err := config.LoadDatabaseURL()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}
