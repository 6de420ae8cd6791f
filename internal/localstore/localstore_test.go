package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blob struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSetGetRemove(t *testing.T) {
	s := NewMemory()

	var got blob
	ok, err := s.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("a", blob{Name: "x", Count: 2}))
	ok, err = s.Get("a", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, blob{Name: "x", Count: 2}, got)

	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Remove("a"))
	ok, err = s.Get("a", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("b", blob{Name: "y"}))
	require.NoError(t, s.Set("a", []int{1, 2, 3}))

	reopened, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, reopened.Keys())

	var nums []int
	ok, err := reopened.Get("a", &nums)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, nums)
}

func TestEmptyFileLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	s, err := New(path)
	require.NoError(t, err)
	assert.Empty(t, s.Keys())
}

func TestCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := New(path)
	assert.Error(t, err)
}
