package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/achados/internal/model"
)

const itemColumns = `i.id, i.name, i.description, i.category_id, i.location_id, i.status,
	i.found_lost_date, i.user_id, i.image_mime, i.created_at, i.updated_at, i.deleted_at,
	c.name, l.name, u.username`

const itemJoins = `FROM items i
	JOIN categories c ON c.id = i.category_id
	JOIN locations l ON l.id = i.location_id
	JOIN users u ON u.id = i.user_id`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var description, imageMime sql.NullString
	err := s.Scan(
		&item.ID, &item.Name, &description, &item.CategoryID, &item.LocationID, &item.Status,
		&item.FoundLostDate, &item.UserID, &imageMime, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt,
		&item.CategoryName, &item.LocationName, &item.Username,
	)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	return item, nil
}

// utcPtr normalizes an optional timestamp before storage.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// CreateItem inserts a new item. The caller is expected to have validated it.
func CreateItem(ctx context.Context, db *sql.DB, item *model.Item) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, description, category_id, location_id, status, found_lost_date, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.Description, item.CategoryID, item.LocationID, item.Status,
		utcPtr(item.FoundLostDate), item.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` `+itemJoins+` WHERE i.id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListItems returns all non-deleted items matching the filter, most recent
// first by found/lost date.
func ListItems(ctx context.Context, db *sql.DB, f model.ItemFilter) ([]model.Item, error) {
	where := []string{"i.deleted_at IS NULL"}
	var args []any

	if f.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, f.Status)
	}
	if f.CategoryID != 0 {
		where = append(where, "i.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.LocationID != 0 {
		where = append(where, "i.location_id = ?")
		args = append(args, f.LocationID)
	}
	if f.UserID != 0 {
		where = append(where, "i.user_id = ?")
		args = append(args, f.UserID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, `(i.name LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\')`)
		pattern := "%" + likeEscaper.Replace(q) + "%"
		args = append(args, pattern, pattern)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` `+itemJoins+`
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY i.found_lost_date IS NULL, i.found_lost_date DESC, i.id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem writes an item's editable fields. Ownership never changes.
func UpdateItem(ctx context.Context, db *sql.DB, item *model.Item) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, category_id = ?, location_id = ?,
		        status = ?, found_lost_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		item.Name, item.Description, item.CategoryID, item.LocationID,
		item.Status, utcPtr(item.FoundLostDate), item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return expectOne(result, "item")
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return expectOne(result, "item")
}

// SetItemImage sets an item's photo.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return expectOne(result, "item")
}

// GetItemImage returns an item's photo and MIME type. Data is nil when the
// item has no photo or does not exist.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// CountItemsByStatus returns the number of active items per status.
func CountItemsByStatus(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM items WHERE deleted_at IS NULL GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting items: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		model.ItemStatusFound: 0,
		model.ItemStatusLost:  0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning item count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
