package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationFiles returns the embedded migration file names in the order
// they are applied.
func MigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// RunMigrations executes every embedded SQL migration in filename
// order, one transaction per file. Migrations are written to be
// idempotent (IF NOT EXISTS, ON CONFLICT DO NOTHING), so running them
// on every start is safe.
func (db *PostgresDB) RunMigrations(ctx context.Context, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := MigrationFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		logger.Info("running migration", zap.String("file", file))

		content, err := migrationsFS.ReadFile("migrations/" + file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		err = db.WithTransaction(ctx, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, string(content))
			return err
		})
		if err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}

		logger.Info("migration completed", zap.String("file", file))
	}

	return nil
}
