// Package migrations embeds the MySQL schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed *.sql
var FS embed.FS

const dialect = "mysql"

// Seams for tests.
var (
	gooseUp     = goose.UpContext
	gooseDown   = goose.DownContext
	gooseStatus = goose.StatusContext
)

func setup() error {
	goose.SetBaseFS(FS)
	goose.SetLogger(logrus.StandardLogger())
	return goose.SetDialect(dialect)
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	return gooseUp(ctx, db, ".")
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	return gooseDown(ctx, db, ".")
}

// Status logs the applied state of each migration.
func Status(ctx context.Context, db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	return gooseStatus(ctx, db, ".")
}
