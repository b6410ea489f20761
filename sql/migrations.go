package sql

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedded embed.FS

type migration struct {
	order int
	name  string
	data  []byte
}

func loadMigrations() ([]migration, error) {
	var migrations []migration
	err := fs.WalkDir(embedded, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}
		parts := strings.Split(d.Name(), "_")
		order, err := strconv.Atoi(parts[0])
		if err != nil {
			return fmt.Errorf("invalid migration %s: %w", d.Name(), err)
		}
		data, err := embedded.ReadFile(path)
		if err != nil {
			return fmt.Errorf("readfile %s: %w", path, err)
		}
		migrations = append(migrations, migration{order: order, name: d.Name(), data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(migrations, func(a, b migration) int {
		return a.order - b.order
	})
	return migrations, nil
}

// statements splits migration script on semicolons.
func (m migration) statements() *bufio.Scanner {
	scanner := bufio.NewScanner(bytes.NewReader(m.data))
	scanner.Split(func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if i := bytes.Index(data, []byte(";")); i >= 0 {
			return i + 1, data[0 : i+1], nil
		}
		return 0, nil, nil
	})
	return scanner
}

// Version returns the schema version of the database.
func Version(db Executor) (int, error) {
	var current int
	if _, err := db.Exec("PRAGMA user_version;", nil, func(stmt *Statement) bool {
		current = stmt.ColumnInt(0)
		return true
	}); err != nil {
		return 0, fmt.Errorf("read user_version %w", err)
	}
	return current, nil
}

func migrate(logger *zap.Logger, db *Database) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	current, err := Version(db)
	if err != nil {
		return err
	}
	if latest := migrations[len(migrations)-1].order; current > latest {
		return fmt.Errorf("%w: %d > %d", ErrTooNew, current, latest)
	}
	for _, m := range migrations {
		if m.order <= current {
			continue
		}
		if err := db.WithTx(context.Background(), func(tx *Tx) error {
			scanner := m.statements()
			for scanner.Scan() {
				if _, err := tx.Exec(scanner.Text(), nil, nil); err != nil {
					return fmt.Errorf("exec %s: %w", scanner.Text(), err)
				}
			}
			// binding values in pragma statement is not allowed
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", m.order), nil, nil); err != nil {
				return fmt.Errorf("update user_version to %d: %w", m.order, err)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		logger.Info("applied migration", zap.String("name", m.name), zap.Int("version", m.order))
	}
	return nil
}
