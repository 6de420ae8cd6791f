//go:build integration
// +build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"wedding-planner/internal/apperr"
)

func setupPostgres(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("wedding"),
		postgres.WithUsername("wedding"),
		postgres.WithPassword("wedding"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := Open(ctx, DriverPostgres, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresGuestList(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)

	w, err := s.CreateWedding(ctx, "ABCDEF", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = s.CreateWedding(ctx, "ABCDEF", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	city, err := s.CreateCity(ctx, w.ID, "Austin")
	require.NoError(t, err)
	_, err = s.CreateCity(ctx, w.ID, "AUSTIN")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	g, err := s.CreateGuest(ctx, w.ID, "Sam", &city.ID)
	require.NoError(t, err)
	cat, err := s.CreateCategory(ctx, w.ID, "Invited", "")
	require.NoError(t, err)
	_, err = s.SetCheck(ctx, w.ID, g.ID, cat.ID, true)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCity(ctx, w.ID, city.ID))
	data, err := s.Bootstrap(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, data.Guests, 1)
	assert.Nil(t, data.Guests[0].CityID)
	assert.Len(t, data.Checks, 1)

	require.NoError(t, s.DeleteWedding(ctx, "ABCDEF"))
	_, err = s.FindWedding(ctx, "ABCDEF")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
