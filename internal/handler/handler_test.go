package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-planner/internal/models"
	"wedding-planner/internal/storage"
)

type fakeSharer struct {
	phone   string
	code    string
	summary string
}

func (f *fakeSharer) ShareWedding(ctx context.Context, phone string, w models.Wedding, summary string) error {
	f.phone, f.code, f.summary = phone, w.Code, summary
	return nil
}

func newTestApp(t *testing.T, sharer Sharer) (*fiber.App, *storage.Storage) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "api.db")
	s, err := storage.Open(context.Background(), storage.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := NewHandler(s, sharer, &Config{}, zerolog.Nop())
	return NewApp(h, zerolog.Nop()), s
}

func call(t *testing.T, app *fiber.App, method, path, wcode string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if wcode != "" {
		req.Header.Set(CodeHeader, wcode)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createWedding(t *testing.T, app *fiber.App) models.Wedding {
	t.Helper()
	var w models.Wedding
	status := call(t, app, http.MethodPost, "/api/weddings/create", "", nil, &w)
	require.Equal(t, http.StatusOK, status)
	return w
}

func TestCreateAndOpenWedding(t *testing.T) {
	app, _ := newTestApp(t, nil)

	w := createWedding(t, app)
	assert.Len(t, w.Code, 6)
	assert.WithinDuration(t, time.Now().Add(15*24*time.Hour), w.ExpiresAt, time.Minute)

	var opened models.Wedding
	status := call(t, app, http.MethodPost, "/api/weddings/open", "", models.CodeRequest{Code: w.Code}, &opened)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, w.Code, opened.Code)

	var e models.ErrorBody
	status = call(t, app, http.MethodPost, "/api/weddings/open", "", models.CodeRequest{Code: "ZZZZZZ"}, &e)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, e.Error)

	status = call(t, app, http.MethodPost, "/api/weddings/open", "", models.CodeRequest{Code: "ab"}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid code", e.Error)
}

func TestBootstrapUnknownCodeIsEmpty(t *testing.T) {
	app, _ := newTestApp(t, nil)

	for _, wcode := range []string{"", "???", "ZZZZZZ"} {
		var data models.Bootstrap
		status := call(t, app, http.MethodGet, "/api/bootstrap", wcode, nil, &data)
		assert.Equal(t, http.StatusOK, status, wcode)
		assert.False(t, data.Found)
		assert.Empty(t, data.Guests)
		assert.NotNil(t, data.Cities)
	}
}

func TestScopedWritesAndBootstrap(t *testing.T) {
	app, _ := newTestApp(t, nil)
	w := createWedding(t, app)

	var city models.City
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/cities", w.Code, models.CityRequest{Name: "Haifa"}, &city))
	assert.Positive(t, city.ID)

	var e models.ErrorBody
	assert.Equal(t, http.StatusConflict, call(t, app, http.MethodPost, "/api/cities", w.Code, models.CityRequest{Name: "haifa"}, &e))
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPost, "/api/cities", w.Code, models.CityRequest{Name: "  "}, &e))

	var cat models.Category
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/categories", w.Code, models.CategoryRequest{Name: "Invited"}, &cat))
	assert.Equal(t, models.ColumnCheckbox, cat.Type)

	name := "Dana"
	var guest models.Guest
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/guests", w.Code, models.GuestRequest{Name: &name, CityID: &city.ID}, &guest))
	require.NotNil(t, guest.CityID)
	assert.Equal(t, city.ID, *guest.CityID)

	var check models.Check
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/checks", w.Code, models.CheckRequest{GuestID: guest.ID, CategoryID: cat.ID, Checked: true}, &check))
	assert.True(t, check.Checked)

	var data models.Bootstrap
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/bootstrap", w.Code, nil, &data))
	assert.True(t, data.Found)
	assert.Len(t, data.Cities, 1)
	assert.Len(t, data.Categories, 1)
	assert.Len(t, data.Guests, 1)
	assert.Len(t, data.Checks, 1)

	var ok models.OK
	require.Equal(t, http.StatusOK, call(t, app, http.MethodDelete, "/api/cities", w.Code, models.CityRequest{ID: city.ID}, &ok))
	assert.True(t, ok.OK)

	var guests []models.Guest
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/guests", w.Code, nil, &guests))
	require.Len(t, guests, 1)
	assert.Nil(t, guests[0].CityID)
}

func TestScopeIsolation(t *testing.T) {
	app, _ := newTestApp(t, nil)
	a := createWedding(t, app)
	b := createWedding(t, app)

	var city models.City
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/cities", a.Code, models.CityRequest{Name: "Eilat"}, &city))

	var e models.ErrorBody
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodPatch, "/api/cities", b.Code, models.CityRequest{ID: city.ID, Name: "Elsewhere"}, &e))
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodDelete, "/api/cities", b.Code, models.CityRequest{ID: city.ID}, &e))

	var cities []models.City
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/cities", b.Code, nil, &cities))
	assert.Empty(t, cities)
}

func TestScopedEndpointsRequireCode(t *testing.T) {
	app, _ := newTestApp(t, nil)

	var e models.ErrorBody
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodGet, "/api/guests", "", nil, &e))
	assert.Equal(t, "wedding code required", e.Error)
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodGet, "/api/guests", "ZZZZZZ", nil, &e))
}

func TestRenewAndDeleteWedding(t *testing.T) {
	app, s := newTestApp(t, nil)
	w := createWedding(t, app)

	var renewed models.Wedding
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/weddings/renew", "", models.CodeRequest{Code: w.Code}, &renewed))
	assert.Equal(t, w.Code, renewed.Code)
	assert.False(t, renewed.ExpiresAt.Before(w.ExpiresAt))

	var msg models.Message
	require.Equal(t, http.StatusOK, call(t, app, http.MethodDelete, "/api/weddings", "", models.CodeRequest{Code: w.Code}, &msg))
	assert.Equal(t, "Wedding and related data deleted successfully", msg.Message)

	_, err := s.FindWedding(context.Background(), w.Code)
	assert.Error(t, err)

	var e models.ErrorBody
	assert.Equal(t, http.StatusNotFound, call(t, app, http.MethodPost, "/api/weddings/delete", "", models.CodeRequest{Code: w.Code}, &e))
}

func TestShareWedding(t *testing.T) {
	var e models.ErrorBody

	app, _ := newTestApp(t, nil)
	w := createWedding(t, app)
	assert.Equal(t, http.StatusServiceUnavailable, call(t, app, http.MethodPost, "/api/weddings/share", "", models.ShareRequest{Code: w.Code, Phone: "0501234567"}, &e))

	sharer := &fakeSharer{}
	app, _ = newTestApp(t, sharer)
	w = createWedding(t, app)

	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPost, "/api/weddings/share", "", models.ShareRequest{Code: w.Code}, &e))

	var msg models.Message
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/weddings/share", "", models.ShareRequest{Code: w.Code, Phone: "0501234567"}, &msg))
	assert.Equal(t, "0501234567", sharer.phone)
	assert.Equal(t, w.Code, sharer.code)
	assert.Equal(t, "0 guests, 0 cities, 0 columns", sharer.summary)
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, nil)
	var body map[string]string
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/health", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}
