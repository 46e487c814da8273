package cmd

import (
	"database/sql"

	"github.com/vibast-solutions/ms-go-hr-auth/config"

	_ "github.com/go-sql-driver/mysql"
)

// openDB opens the MySQL pool with the configured limits and checks it is
// reachable.
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// loadConfig loads configuration and applies the logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := configureLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
