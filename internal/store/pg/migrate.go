package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	migrations "github.com/dropDatabas3/tokengate/migrations/postgres"
)

// Migrate applies the embedded schema migrations in filename order.
// Every statement file is idempotent, so re-running is safe.
func (s *Store) Migrate(ctx context.Context) error {
	log := logger.L().With(logger.Layer("store"), logger.Component("pg"), logger.Op("migrate"))

	names, err := migrationFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		sql, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		log.Info("migration applied", logger.String("file", name))
	}
	return nil
}

func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
