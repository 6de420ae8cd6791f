package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-planner/internal/apperr"
	"wedding-planner/internal/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func openTestStorage(t *testing.T) (*Storage, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), DriverSQLite, dsn, WithClock(c.now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, c
}

func newWedding(t *testing.T, s *Storage, c *clock, code string) models.Wedding {
	t.Helper()
	w, err := s.CreateWedding(context.Background(), code, c.t.Add(15*24*time.Hour))
	require.NoError(t, err)
	return w
}

func ptr(v int64) *int64 { return &v }

func TestWeddingLifecycle(t *testing.T) {
	ctx := context.Background()
	s, c := openTestStorage(t)

	w := newWedding(t, s, c, "ABCDEF")
	assert.Positive(t, w.ID)

	_, err := s.CreateWedding(ctx, "ABCDEF", c.t.Add(time.Hour))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	found, err := s.FindWedding(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, w.ID, found.ID)
	assert.True(t, w.ExpiresAt.Equal(found.ExpiresAt))

	_, err = s.FindWedding(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	c.t = c.t.Add(16 * 24 * time.Hour)
	_, err = s.FindWedding(ctx, "ABCDEF")
	assert.ErrorIs(t, err, apperr.ErrExpired)

	renewed, err := s.RenewWedding(ctx, "ABCDEF", c.t.Add(15*24*time.Hour))
	require.NoError(t, err)
	assert.True(t, renewed.ExpiresAt.After(c.t))
	_, err = s.FindWedding(ctx, "ABCDEF")
	require.NoError(t, err)

	_, err = s.RenewWedding(ctx, "ZZZZZZ", c.t)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCityNamesUniquePerWedding(t *testing.T) {
	ctx := context.Background()
	s, c := openTestStorage(t)
	a := newWedding(t, s, c, "AAAAAA")
	b := newWedding(t, s, c, "BBBBBB")

	austin, err := s.CreateCity(ctx, a.ID, "  Austin ")
	require.NoError(t, err)
	assert.Equal(t, "Austin", austin.Name)

	_, err = s.CreateCity(ctx, a.ID, "austin")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.CreateCity(ctx, b.ID, "Austin")
	require.NoError(t, err, "another wedding may reuse the name")

	_, err = s.CreateCity(ctx, a.ID, "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	dallas, err := s.CreateCity(ctx, a.ID, "Dallas")
	require.NoError(t, err)
	_, err = s.UpdateCity(ctx, a.ID, dallas.ID, "AUSTIN")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	renamed, err := s.UpdateCity(ctx, a.ID, austin.ID, "AUSTIN")
	require.NoError(t, err, "renaming to a different case of its own name is allowed")
	assert.Equal(t, "AUSTIN", renamed.Name)

	_, err = s.UpdateCity(ctx, b.ID, dallas.ID, "Houston")
	assert.ErrorIs(t, err, apperr.ErrNotFound, "cities of other weddings are out of scope")

	cities, err := s.ListCities(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.City{{ID: austin.ID, Name: "AUSTIN"}, {ID: dallas.ID, Name: "Dallas"}}, cities)
}

func TestDeleteCityDetachesGuests(t *testing.T) {
	ctx := context.Background()
	s, c := openTestStorage(t)
	w := newWedding(t, s, c, "ABCDEF")

	city, err := s.CreateCity(ctx, w.ID, "Austin")
	require.NoError(t, err)
	g1, err := s.CreateGuest(ctx, w.ID, "Sam", ptr(city.ID))
	require.NoError(t, err)
	g2, err := s.CreateGuest(ctx, w.ID, "Alex", ptr(city.ID))
	require.NoError(t, err)

	require.NoError(t, s.DeleteCity(ctx, w.ID, city.ID))

	guests, err := s.ListGuests(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, guests, 2)
	assert.Equal(t, g1.ID, guests[0].ID)
	assert.Equal(t, g2.ID, guests[1].ID)
	assert.Nil(t, guests[0].CityID)
	assert.Nil(t, guests[1].CityID)

	assert.ErrorIs(t, s.DeleteCity(ctx, w.ID, city.ID), apperr.ErrNotFound)
}

func TestDeleteCategoryCascadesChecks(t *testing.T) {
	ctx := context.Background()
	s, c := openTestStorage(t)
	w := newWedding(t, s, c, "ABCDEF")

	g, err := s.CreateGuest(ctx, w.ID, "Sam", nil)
	require.NoError(t, err)
	invited, err := s.CreateCategory(ctx, w.ID, "Invited", "")
	require.NoError(t, err)
	assert.Equal(t, models.ColumnCheckbox, invited.Type)
	vegan, err := s.CreateCategory(ctx, w.ID, "Vegan", models.ColumnCheckbox)
	require.NoError(t, err)

	_, err = s.SetCheck(ctx, w.ID, g.ID, invited.ID, true)
	require.NoError(t, err)
	_, err = s.SetCheck(ctx, w.ID, g.ID, vegan.ID, true)
	require.NoError(t, err)
	_, err = s.SetCheck(ctx, w.ID, g.ID, vegan.ID, false)
	require.NoError(t, err)

	checks, err := s.ListChecks(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Check{
		{GuestID: g.ID, CategoryID: invited.ID, Checked: true},
		{GuestID: g.ID, CategoryID: vegan.ID, Checked: false},
	}, checks)

	require.NoError(t, s.DeleteCategory(ctx, w.ID, invited.ID))
	checks, err = s.ListChecks(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Check{{GuestID: g.ID, CategoryID: vegan.ID, Checked: false}}, checks)
}

func TestCategoryValidation(t *testing.T) {
	ctx := context.Background()
	s, c := openTestStorage(t)
	w := newWedding(t, s, c, "ABCDEF")

	_, err := s.CreateCategory(ctx, w.ID, "Notes", "paragraph")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	notes, err := s.CreateCategory(ctx, w.ID, "Notes", models.ColumnText)
	require.NoError(t, err)

	updated, err := s.UpdateCategory(ctx, w.ID, notes.ID, "Remarks", "")
	require.NoError(t, err)
	assert.Equal(t, models.ColumnText, updated.Type, "empty type keeps the current one")

	_, err = s.UpdateCategory(ctx, w.ID, 9999, "X", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGuestScope(t *testing.T) {
	ctx := context.Background()
	s, c := openTestStorage(t)
	a := newWedding(t, s, c, "AAAAAA")
	b := newWedding(t, s, c, "BBBBBB")

	foreign, err := s.CreateCity(ctx, b.ID, "Elsewhere")
	require.NoError(t, err)
	_, err = s.CreateGuest(ctx, a.ID, "Sam", ptr(foreign.ID))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	g, err := s.CreateGuest(ctx, a.ID, "Sam", nil)
	require.NoError(t, err)
	cat, err := s.CreateCategory(ctx, b.ID, "Invited", "")
	require.NoError(t, err)
	_, err = s.SetCheck(ctx, a.ID, g.ID, cat.ID, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	name := "Samantha"
	updated, err := s.UpdateGuest(ctx, a.ID, g.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Samantha", updated.Name)

	_, err = s.UpdateGuest(ctx, b.ID, g.ID, &name, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, s.DeleteGuest(ctx, b.ID, g.ID), apperr.ErrNotFound)
	require.NoError(t, s.DeleteGuest(ctx, a.ID, g.ID))
}

func TestDeleteWeddingCascades(t *testing.T) {
	ctx := context.Background()
	s, c := openTestStorage(t)
	w := newWedding(t, s, c, "ABCDEF")
	other := newWedding(t, s, c, "GHJKMN")

	city, err := s.CreateCity(ctx, w.ID, "Austin")
	require.NoError(t, err)
	g, err := s.CreateGuest(ctx, w.ID, "Sam", ptr(city.ID))
	require.NoError(t, err)
	cat, err := s.CreateCategory(ctx, w.ID, "Invited", "")
	require.NoError(t, err)
	_, err = s.SetCheck(ctx, w.ID, g.ID, cat.ID, true)
	require.NoError(t, err)
	_, err = s.CreateGuest(ctx, other.ID, "Kept", nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteWedding(ctx, "ABCDEF"))
	assert.ErrorIs(t, s.DeleteWedding(ctx, "ABCDEF"), apperr.ErrNotFound)

	data, err := s.Bootstrap(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, data.Cities)
	assert.Empty(t, data.Categories)
	assert.Empty(t, data.Guests)
	assert.Empty(t, data.Checks)

	kept, err := s.ListGuests(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:x.db?_foreign_keys=on", sqliteDSN("file:x.db"))
	assert.Equal(t, "file:x.db?cache=shared&_foreign_keys=on", sqliteDSN("file:x.db?cache=shared"))
	assert.Equal(t, "file:x.db?_foreign_keys=on", sqliteDSN("file:x.db?_foreign_keys=on"))
}
