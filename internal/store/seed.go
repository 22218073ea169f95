package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Seed lists lookup rows to create on startup.
type Seed struct {
	Categories []SeedEntry `yaml:"categories"`
	Locations  []SeedEntry `yaml:"locations"`
}

// SeedEntry is one category or location.
type SeedEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(r io.Reader) (*Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}
	for _, e := range append(append([]SeedEntry{}, s.Categories...), s.Locations...) {
		if e.Code == "" || e.Name == "" {
			return nil, fmt.Errorf("seed entry %+v: code and name required", e)
		}
	}
	return &s, nil
}

// ApplySeed creates missing categories and locations. Rows whose code
// already exists are left untouched, so the seed can run on every start.
// It returns how many rows were created.
func ApplySeed(ctx context.Context, db *sql.DB, s *Seed) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback()

	created := 0
	apply := func(table string, entries []SeedEntry) error {
		for _, e := range entries {
			result, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO `+table+` (code, name) VALUES (?, ?)`, e.Code, e.Name,
			)
			if err != nil {
				return fmt.Errorf("seeding %s %q: %w", table, e.Code, err)
			}
			n, _ := result.RowsAffected()
			created += int(n)
		}
		return nil
	}

	if err := apply(tableCategories, s.Categories); err != nil {
		return 0, err
	}
	if err := apply(tableLocations, s.Locations); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	return created, nil
}
