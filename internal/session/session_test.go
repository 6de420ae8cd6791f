package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-planner/internal/localstore"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestSaveLoad(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := New(localstore.NewMemory(), WithClock(c.now))

	saved, err := s.Save("ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, c.t, saved.SavedAt)
	assert.Equal(t, c.t.Add(DefaultTTL), saved.ExpireAt)

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ABCDEF", got.Code)
}

func TestSaveOverwrites(t *testing.T) {
	s := New(localstore.NewMemory())

	_, err := s.Save("ABCDEF")
	require.NoError(t, err)
	_, err = s.Save("GHJKMN")
	require.NoError(t, err)

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "GHJKMN", got.Code)
}

func TestLoadExpiredClears(t *testing.T) {
	blobs := localstore.NewMemory()
	c := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := New(blobs, WithClock(c.now), WithTTL(time.Hour))

	_, err := s.Save("ABCDEF")
	require.NoError(t, err)

	c.t = c.t.Add(59 * time.Minute)
	got, err := s.Load()
	require.NoError(t, err)
	assert.NotNil(t, got)

	c.t = c.t.Add(2 * time.Minute)
	got, err = s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NotContains(t, blobs.Keys(), Key)
}

func TestClear(t *testing.T) {
	s := New(localstore.NewMemory())

	require.NoError(t, s.Clear())
	_, err := s.Save("ABCDEF")
	require.NoError(t, err)
	require.NoError(t, s.Clear())

	got, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}
