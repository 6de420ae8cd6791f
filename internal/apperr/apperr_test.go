package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("failed to add city: %w", New(Conflict, "city already exists"))

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, Conflict, KindOf(err))
	assert.Equal(t, "city already exists", Message(err))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
}

func TestStatusRoundTrip(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
		back   Kind
	}{
		{Validation, http.StatusBadRequest, Validation},
		{Conflict, http.StatusConflict, Conflict},
		{NotFound, http.StatusNotFound, NotFound},
		{Expired, http.StatusNotFound, NotFound},
		{Transient, http.StatusServiceUnavailable, Transient},
		{Internal, http.StatusInternalServerError, Transient},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			status := Status(New(tt.kind, "x"))
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.back, KindOf(FromStatus(status, "x")))
		})
	}
}

func TestDefinitive(t *testing.T) {
	assert.True(t, Definitive(New(Conflict, "dup")))
	assert.True(t, Definitive(New(Validation, "empty")))
	assert.False(t, Definitive(Wrap(Transient, "offline", errors.New("dial tcp"))))
	assert.False(t, Definitive(errors.New("boom")))
}
