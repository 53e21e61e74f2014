package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"pulsex-swap-sync/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded postgres file in name order.
// Each file must be safe to re-run.
func RunPostgresMigrations(ctx context.Context, db postgres.DB) error {
	files, err := readSQLFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, f := range files {
		if _, err := db.Exec(ctx, f.body); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
	}
	return nil
}

type sqlFile struct {
	name string
	body string
}

// readSQLFiles returns the non-empty .sql files of dir sorted by name.
func readSQLFiles(fsys fs.FS, dir string) ([]sqlFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	files := make([]sqlFile, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		files = append(files, sqlFile{name: name, body: string(data)})
	}
	return files, nil
}
