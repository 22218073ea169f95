package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/erazemk/achados/internal/export"
	"github.com/erazemk/achados/internal/model"
)

func (e *testEnv) itemBody(name string, date any) map[string]any {
	body := map[string]any{
		"name":        name,
		"description": "Encontrado perto da entrada",
		"category":    e.categoryID,
		"location":    e.locationID,
		"status":      model.ItemStatusFound,
	}
	if date != nil {
		body["found_lost_date"] = date
	}
	return body
}

func (e *testEnv) createItem(t *testing.T, token string, body map[string]any) model.Item {
	t.Helper()
	var item model.Item
	resp := e.do(t, "POST", "/api/items", token, body, &item)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return item
}

func itemPath(id int64) string {
	return "/api/items/" + strconv.FormatInt(id, 10)
}

func TestCreateItemAcceptsPastPresentAndAbsentDates(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name string
		date any
		want *time.Time
	}{
		{"past", testNow.Add(-24 * time.Hour).Format(time.RFC3339), ptr(testNow.Add(-24 * time.Hour))},
		{"now", testNow.Format(time.RFC3339Nano), ptr(testNow)},
		{"offset in the past", "2026-10-15T08:00:00-03:00", ptr(testNow.Add(-1 * time.Hour))},
		{"naive read as UTC", "2026-10-15T11:30", ptr(testNow.Add(-30 * time.Minute))},
		{"explicit null", nil, nil},
		{"empty string", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := env.itemBody("Mochila "+tt.name, tt.date)
			if tt.date == nil {
				body["found_lost_date"] = nil
			}
			created := env.createItem(t, env.token, body)

			var got model.Item
			resp := env.do(t, "GET", itemPath(created.ID), env.token, nil, &got)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			if tt.want == nil {
				assert.Nil(t, got.FoundLostDate)
				return
			}
			require.NotNil(t, got.FoundLostDate)
			assert.True(t, tt.want.Equal(*got.FoundLostDate), "stored %v, want %v", got.FoundLostDate, tt.want)
		})
	}
}

func TestCreateItemWithoutDateField(t *testing.T) {
	env := setupTestServer(t)

	created := env.createItem(t, env.token, env.itemBody("Garrafa", nil))
	assert.Nil(t, created.FoundLostDate)
	assert.Equal(t, "Eletrônicos", created.CategoryName)
	assert.Equal(t, "admin", created.Username)
}

func TestCreateItemRejectsFutureDate(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name string
		date string
	}{
		{"one minute ahead", testNow.Add(time.Minute).Format(time.RFC3339)},
		{"five hours ahead", testNow.Add(5 * time.Hour).Format(time.RFC3339)},
		{"one day ahead", testNow.Add(24 * time.Hour).Format(time.RFC3339)},
		{"one nanosecond ahead", testNow.Add(time.Nanosecond).Format(time.RFC3339Nano)},
		{"local offset ahead", "2026-10-15T10:00:00-03:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body validationResponse
			resp := env.do(t, "POST", "/api/items", env.token, env.itemBody("Celular", tt.date), &body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			msgs := body.Fields["found_lost_date"]
			require.Len(t, msgs, 1)
			assert.Contains(t, msgs[0], "futuro")
			assert.Contains(t, msgs[0], "data")
			assert.Len(t, body.Fields, 1, "only the date should fail")
			assert.Equal(t, "pt-BR", resp.Header.Get("Content-Language"))
		})
	}

	var items []model.Item
	env.do(t, "GET", "/api/items", env.token, nil, &items)
	assert.Empty(t, items, "rejected items must not be stored")
}

func TestFutureDateMessageInEnglish(t *testing.T) {
	env := setupTestServer(t)

	req, _ := authRequest("POST", env.server.URL+"/api/items", env.token,
		env.itemBody("Phone", testNow.Add(time.Hour).Format(time.RFC3339)))
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body validationResponse
	require.NoError(t, decodeBody(resp, &body))
	assert.Equal(t, "Invalid data.", body.Error)
	assert.Contains(t, body.Fields["found_lost_date"][0], "future")
}

func TestCreateItemFieldErrors(t *testing.T) {
	env := setupTestServer(t)

	var body validationResponse
	resp := env.do(t, "POST", "/api/items", env.token, map[string]any{
		"name":            "",
		"category":        9999,
		"status":          "stolen",
		"found_lost_date": "ontem",
	}, &body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "location")
	assert.Equal(t, []string{"Categoria inexistente."}, body.Fields["category"])
	assert.Equal(t, []string{`"stolen" não é uma escolha válida.`}, body.Fields["status"])
	assert.Equal(t, []string{"Formato de data e hora inválido."}, body.Fields["found_lost_date"])
}

func TestUpdateItemRejectsFutureDate(t *testing.T) {
	env := setupTestServer(t)
	item := env.createItem(t, env.token, env.itemBody("Carteira", testNow.Add(-time.Hour).Format(time.RFC3339)))

	var body validationResponse
	resp := env.do(t, "PUT", itemPath(item.ID), env.token,
		env.itemBody("Carteira", testNow.Add(5*time.Hour).Format(time.RFC3339)), &body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body.Fields["found_lost_date"][0], "futuro")

	resp = env.do(t, "PATCH", itemPath(item.ID), env.token, map[string]any{
		"found_lost_date": testNow.Add(24 * time.Hour).Format(time.RFC3339),
	}, &body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body.Fields["found_lost_date"][0], "futuro")

	var got model.Item
	env.do(t, "GET", itemPath(item.ID), env.token, nil, &got)
	require.NotNil(t, got.FoundLostDate)
	assert.True(t, testNow.Add(-time.Hour).Equal(*got.FoundLostDate), "date must be unchanged")
}

func TestPatchItem(t *testing.T) {
	env := setupTestServer(t)
	item := env.createItem(t, env.token, env.itemBody("Chaves", testNow.Add(-time.Hour).Format(time.RFC3339)))

	var got model.Item
	resp := env.do(t, "PATCH", itemPath(item.ID), env.token, map[string]any{"status": model.ItemStatusLost}, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.ItemStatusLost, got.Status)
	assert.Equal(t, "Chaves", got.Name)
	require.NotNil(t, got.FoundLostDate, "untouched date must survive a partial update")

	resp = env.do(t, "PATCH", itemPath(item.ID), env.token, map[string]any{"found_lost_date": nil}, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, got.FoundLostDate)
}

func TestPutItemRequiresFullPayload(t *testing.T) {
	env := setupTestServer(t)
	item := env.createItem(t, env.token, env.itemBody("Caderno", nil))

	var body validationResponse
	resp := env.do(t, "PUT", itemPath(item.ID), env.token, map[string]any{"name": "Caderno azul"}, &body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body.Fields, "category")
	assert.Contains(t, body.Fields, "status")
}

func TestItemOwnership(t *testing.T) {
	env := setupTestServer(t)
	_, ownerToken := env.userToken(t, "aluno", model.RoleUser)
	_, otherToken := env.userToken(t, "outro", model.RoleUser)
	_, managerToken := env.userToken(t, "gerente", model.RoleManager)

	item := env.createItem(t, ownerToken, env.itemBody("Óculos", nil))

	resp := env.do(t, "PATCH", itemPath(item.ID), otherToken, map[string]any{"name": "Meu"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, "DELETE", itemPath(item.ID), otherToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, "PATCH", itemPath(item.ID), ownerToken, map[string]any{"name": "Óculos de sol"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, "PATCH", itemPath(item.ID), managerToken, map[string]any{"status": model.ItemStatusLost}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var mine []model.Item
	env.do(t, "GET", "/api/items?mine=1", otherToken, nil, &mine)
	assert.Empty(t, mine)

	resp = env.do(t, "DELETE", itemPath(item.ID), ownerToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, "GET", itemPath(item.ID), ownerToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListItemsFilters(t *testing.T) {
	env := setupTestServer(t)
	env.createItem(t, env.token, env.itemBody("Mochila azul", nil))
	lost := env.itemBody("Relógio", nil)
	lost["status"] = model.ItemStatusLost
	env.createItem(t, env.token, lost)

	var items []model.Item
	env.do(t, "GET", "/api/items?status=lost", env.token, nil, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Relógio", items[0].Name)

	env.do(t, "GET", "/api/items?q=mochila", env.token, nil, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Mochila azul", items[0].Name)

	resp := env.do(t, "GET", "/api/items?status=stolen", env.token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestItemImageUpload(t *testing.T) {
	env := setupTestServer(t)
	item := env.createItem(t, env.token, env.itemBody("Boné", nil))

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var pngData bytes.Buffer
	require.NoError(t, png.Encode(&pngData, img))

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("image", "bone.png")
	require.NoError(t, err)
	_, err = part.Write(pngData.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("PUT", env.server.URL+itemPath(item.ID)+"/image", &form)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ = authRequest("GET", env.server.URL+itemPath(item.ID)+"/image", env.token, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestExportItems(t *testing.T) {
	env := setupTestServer(t)
	env.createItem(t, env.token, env.itemBody("Fone de ouvido", testNow.Add(-2*time.Hour).Format(time.RFC3339)))

	req, _ := authRequest("GET", env.server.URL+"/api/items/export?lang=en", env.token, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "itens-20261015.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Items")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Fone de ouvido", rows[1][0])
	assert.Equal(t, "Found", rows[1][4])
	assert.Equal(t, "2026-10-15 10:00", rows[1][5])
}

func decodeBody(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func ptr[T any](v T) *T { return &v }
