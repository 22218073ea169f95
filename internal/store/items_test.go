package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/achados/internal/db"
	"github.com/erazemk/achados/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	lost := time.Date(2026, 10, 14, 9, 30, 15, 123456000, time.FixedZone("BRT", -3*60*60))
	in := f.item("Notebook Dell", model.ItemStatusFound, &lost)
	in.Description = "Notebook preto encontrado na biblioteca"

	item, err := CreateItem(ctx, database, in)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item id")
	}
	if item.Name != "Notebook Dell" {
		t.Errorf("expected name 'Notebook Dell', got %q", item.Name)
	}
	if item.FoundLostDate == nil || !item.FoundLostDate.Equal(lost) {
		t.Errorf("expected found_lost_date %v, got %v", lost, item.FoundLostDate)
	}
	if item.CategoryName != "Test Eletrônicos" || item.LocationName != "Test Biblioteca" {
		t.Errorf("unexpected joined names: %q, %q", item.CategoryName, item.LocationName)
	}
	if item.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", item.Username)
	}
}

func TestCreateItemWithoutDate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	item, err := CreateItem(ctx, database, f.item("Guarda-chuva", model.ItemStatusLost, nil))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.FoundLostDate != nil {
		t.Errorf("expected nil found_lost_date, got %v", item.FoundLostDate)
	}
}

func TestCreateItemUnknownCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	in := f.item("Chaves", model.ItemStatusLost, nil)
	in.CategoryID = 12345
	if _, err := CreateItem(ctx, database, in); err == nil {
		t.Error("expected foreign key error for unknown category")
	}
}

func TestListItemsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	older := time.Now().Add(-48 * time.Hour)
	newer := time.Now().Add(-time.Hour)
	CreateItem(ctx, database, f.item("Mochila Azul", model.ItemStatusFound, &older))
	CreateItem(ctx, database, f.item("Carteira", model.ItemStatusLost, &newer))
	CreateItem(ctx, database, f.item("Celular", model.ItemStatusFound, nil))

	all, err := ListItems(ctx, database, model.ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 items, got %d", len(all))
	}
	// Dated items first, newest first; undated last.
	if all[0].Name != "Carteira" || all[1].Name != "Mochila Azul" || all[2].Name != "Celular" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}

	found, _ := ListItems(ctx, database, model.ItemFilter{Status: model.ItemStatusFound})
	if len(found) != 2 {
		t.Errorf("expected 2 found items, got %d", len(found))
	}

	q, _ := ListItems(ctx, database, model.ItemFilter{Query: "mochila"})
	if len(q) != 1 {
		t.Errorf("expected 1 item matching 'mochila', got %d", len(q))
	}

	other, _ := CreateCategory(ctx, database, "01", "Documentos")
	byCat, _ := ListItems(ctx, database, model.ItemFilter{CategoryID: other.ID})
	if len(byCat) != 0 {
		t.Errorf("expected 0 items in empty category, got %d", len(byCat))
	}
}

func TestUpdateItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	past := time.Now().Add(-time.Hour)
	item, _ := CreateItem(ctx, database, f.item("Chaves", model.ItemStatusLost, &past))

	item.Status = model.ItemStatusFound
	item.FoundLostDate = nil
	if err := UpdateItem(ctx, database, item); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusFound {
		t.Errorf("expected status 'found', got %q", got.Status)
	}
	if got.FoundLostDate != nil {
		t.Errorf("expected cleared date, got %v", got.FoundLostDate)
	}

	missing := *item
	missing.ID = 9999
	if err := UpdateItem(ctx, database, &missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSoftDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	item, _ := CreateItem(ctx, database, f.item("Delete Me", model.ItemStatusLost, nil))
	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	items, _ := ListItems(ctx, database, model.ItemFilter{})
	if len(items) != 0 {
		t.Errorf("expected 0 items after soft delete, got %d", len(items))
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got == nil || got.DeletedAt == nil {
		t.Error("expected soft-deleted item to still be fetchable by ID")
	}

	if err := DeleteItem(ctx, database, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	item, _ := CreateItem(ctx, database, f.item("Óculos", model.ItemStatusFound, nil))
	if err := SetItemImage(ctx, database, item.ID, []byte("fake image data"), "image/jpeg"); err != nil {
		t.Fatalf("SetItemImage: %v", err)
	}

	data, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected image data, got %q", string(data))
	}
	if mime != "image/jpeg" {
		t.Errorf("expected mime 'image/jpeg', got %q", mime)
	}
}

func TestCountItemsByStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	CreateItem(ctx, database, f.item("A", model.ItemStatusLost, nil))
	CreateItem(ctx, database, f.item("B", model.ItemStatusLost, nil))

	counts, err := CountItemsByStatus(ctx, database)
	if err != nil {
		t.Fatalf("CountItemsByStatus: %v", err)
	}
	if counts[model.ItemStatusLost] != 2 || counts[model.ItemStatusFound] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestListItemsQueryMatchesWildcardsLiterally(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := newFixture(t, database)

	CreateItem(ctx, database, f.item("Camiseta 100% algodão", model.ItemStatusFound, nil))
	CreateItem(ctx, database, f.item("Camiseta 1000 algodão", model.ItemStatusFound, nil))
	CreateItem(ctx, database, f.item("pen_drive", model.ItemStatusLost, nil))
	CreateItem(ctx, database, f.item("pendrive", model.ItemStatusLost, nil))
	CreateItem(ctx, database, f.item(`C:\backup`, model.ItemStatusLost, nil))

	tests := []struct {
		query string
		want  []string
	}{
		{"100%", []string{"Camiseta 100% algodão"}},
		{"%", []string{"Camiseta 100% algodão"}},
		{"n_d", []string{"pen_drive"}},
		{"_", []string{"pen_drive"}},
		{`:\b`, []string{`C:\backup`}},
	}

	for _, tt := range tests {
		items, err := ListItems(ctx, database, model.ItemFilter{Query: tt.query})
		if err != nil {
			t.Fatalf("ListItems(%q): %v", tt.query, err)
		}
		var names []string
		for _, item := range items {
			names = append(names, item.Name)
		}
		if len(names) != len(tt.want) || (len(names) > 0 && names[0] != tt.want[0]) {
			t.Errorf("query %q: expected %v, got %v", tt.query, tt.want, names)
		}
	}
}
