package whatsapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wedding-planner/internal/models"
)

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"050-123-4567", "972501234567"},
		{"+972 50 123 4567", "972501234567"},
		{"+9720501234567", "972501234567"},
		{"(212) 555-0100", "2125550100"},
		{"14155550100", "14155550100"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhoneNumber(tt.in))
		})
	}
}

func TestShareText(t *testing.T) {
	w := models.Wedding{Code: "ABC234", ExpiresAt: time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)}

	text := ShareText(w, "3 guests, 1 cities, 2 columns")
	assert.Contains(t, text, "*ABC234*")
	assert.Contains(t, text, "16.06.2026")
	assert.Contains(t, text, "3 guests")

	text = ShareText(models.Wedding{Code: "ABC234"}, "")
	assert.NotContains(t, text, "Valid until")
}
