package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/achados/internal/model"
)

// Categories and locations share a table shape: id, code, name, created_at.
// The helpers below work on either table. The table names are constants
// and are never taken from input.
const (
	tableCategories = "categories"
	tableLocations  = "locations"
)

type lookupRow struct {
	ID        int64
	Code      string
	Name      string
	CreatedAt time.Time
}

func createLookup(ctx context.Context, db *sql.DB, table, code, name string) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO `+table+` (code, name) VALUES (?, ?)`, code, name,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func getLookup(ctx context.Context, db *sql.DB, table, column string, key any) (*lookupRow, error) {
	r := &lookupRow{}
	err := db.QueryRowContext(ctx,
		`SELECT id, code, name, created_at FROM `+table+` WHERE `+column+` = ?`, key,
	).Scan(&r.ID, &r.Code, &r.Name, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func listLookups(ctx context.Context, db *sql.DB, table string) ([]lookupRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, code, name, created_at FROM `+table+` ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lookupRow
	for rows.Next() {
		var r lookupRow
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func updateLookup(ctx context.Context, db *sql.DB, table string, id int64, code, name string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE `+table+` SET code = ?, name = ? WHERE id = ?`, code, name, id,
	)
	if err != nil {
		return err
	}
	return expectOne(result, table)
}

// deleteLookup removes a row unless live or soft-deleted items still point at it.
func deleteLookup(ctx context.Context, db *sql.DB, table, itemColumn string, id int64) error {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE `+itemColumn+` = ?`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking %s usage: %w", table, err)
	}
	if count > 0 {
		return fmt.Errorf("%s %d referenced by %d items: %w", table, id, count, ErrInUse)
	}

	result, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result, table)
}

func (r *lookupRow) category() *model.Category {
	return &model.Category{ID: r.ID, Code: r.Code, Name: r.Name, CreatedAt: r.CreatedAt}
}

func (r *lookupRow) location() *model.Location {
	return &model.Location{ID: r.ID, Code: r.Code, Name: r.Name, CreatedAt: r.CreatedAt}
}

// CreateCategory creates a new category.
func CreateCategory(ctx context.Context, db *sql.DB, code, name string) (*model.Category, error) {
	id, err := createLookup(ctx, db, tableCategories, code, name)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	r, err := getLookup(ctx, db, tableCategories, "id", id)
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	if r == nil {
		return nil, nil
	}
	return r.category(), nil
}

// GetCategoryByCode returns a category by its short code.
func GetCategoryByCode(ctx context.Context, db *sql.DB, code string) (*model.Category, error) {
	r, err := getLookup(ctx, db, tableCategories, "code", code)
	if err != nil {
		return nil, fmt.Errorf("getting category by code: %w", err)
	}
	if r == nil {
		return nil, nil
	}
	return r.category(), nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := listLookups(ctx, db, tableCategories)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	out := make([]model.Category, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].category())
	}
	return out, nil
}

// UpdateCategory renames a category.
func UpdateCategory(ctx context.Context, db *sql.DB, id int64, code, name string) error {
	if err := updateLookup(ctx, db, tableCategories, id, code, name); err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	return nil
}

// DeleteCategory deletes a category. Fails with ErrInUse if items reference it.
func DeleteCategory(ctx context.Context, db *sql.DB, id int64) error {
	if err := deleteLookup(ctx, db, tableCategories, "category_id", id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

// CreateLocation creates a new location.
func CreateLocation(ctx context.Context, db *sql.DB, code, name string) (*model.Location, error) {
	id, err := createLookup(ctx, db, tableLocations, code, name)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}
	return GetLocation(ctx, db, id)
}

// GetLocation returns a location by ID.
func GetLocation(ctx context.Context, db *sql.DB, id int64) (*model.Location, error) {
	r, err := getLookup(ctx, db, tableLocations, "id", id)
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	if r == nil {
		return nil, nil
	}
	return r.location(), nil
}

// GetLocationByCode returns a location by its short code.
func GetLocationByCode(ctx context.Context, db *sql.DB, code string) (*model.Location, error) {
	r, err := getLookup(ctx, db, tableLocations, "code", code)
	if err != nil {
		return nil, fmt.Errorf("getting location by code: %w", err)
	}
	if r == nil {
		return nil, nil
	}
	return r.location(), nil
}

// ListLocations returns all locations ordered by name.
func ListLocations(ctx context.Context, db *sql.DB) ([]model.Location, error) {
	rows, err := listLookups(ctx, db, tableLocations)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	out := make([]model.Location, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].location())
	}
	return out, nil
}

// UpdateLocation renames a location.
func UpdateLocation(ctx context.Context, db *sql.DB, id int64, code, name string) error {
	if err := updateLookup(ctx, db, tableLocations, id, code, name); err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	return nil
}

// DeleteLocation deletes a location. Fails with ErrInUse if items reference it.
func DeleteLocation(ctx context.Context, db *sql.DB, id int64) error {
	if err := deleteLookup(ctx, db, tableLocations, "location_id", id); err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}
