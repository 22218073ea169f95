package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/erazemk/achados/internal/model"
)

type fixture struct {
	user     *model.User
	category *model.Category
	location *model.Location
}

func newFixture(t *testing.T, database *sql.DB) fixture {
	t.Helper()
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "testuser", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	category, err := CreateCategory(ctx, database, "99", "Test Eletrônicos")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	location, err := CreateLocation(ctx, database, "99", "Test Biblioteca")
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	return fixture{user: user, category: category, location: location}
}

func (f fixture) item(name, status string, date *time.Time) *model.Item {
	return &model.Item{
		Name:          name,
		CategoryID:    f.category.ID,
		LocationID:    f.location.ID,
		Status:        status,
		FoundLostDate: date,
		UserID:        f.user.ID,
	}
}
