package models

import (
	"strconv"
	"time"
)

// Wedding is the tenant every other entity belongs to
type Wedding struct {
	ID        int64     `json:"id,omitempty"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the wedding is past its expiry at now
func (w Wedding) Expired(now time.Time) bool {
	return !now.Before(w.ExpiresAt)
}

// City is a place guests come from
type City struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ColumnType is the kind of value a category column holds
type ColumnType string

const (
	ColumnCheckbox ColumnType = "checkbox"
	ColumnText     ColumnType = "text"
)

// Valid reports whether t is a known column type
func (t ColumnType) Valid() bool {
	return t == ColumnCheckbox || t == ColumnText
}

// Category is a user defined guest list column
type Category struct {
	ID   int64      `json:"id"`
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Guest is a person on the guest list
type Guest struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	CityID *int64 `json:"city_id"`
}

// Check is the boolean cell of a (guest, category) pair
type Check struct {
	GuestID    int64 `json:"guest_id"`
	CategoryID int64 `json:"category_id"`
	Checked    bool  `json:"checked"`
}

// CheckKey is the composite key checks are indexed by on the client
func CheckKey(guestID, categoryID int64) string {
	return strconv.FormatInt(guestID, 10) + ":" + strconv.FormatInt(categoryID, 10)
}

// Bootstrap is the full dataset of a wedding
type Bootstrap struct {
	Found      bool       `json:"found"`
	Cities     []City     `json:"cities"`
	Categories []Category `json:"categories"`
	Guests     []Guest    `json:"guests"`
	Checks     []Check    `json:"checks"`
}

// EmptyBootstrap is what an unknown or expired code resolves to
func EmptyBootstrap() Bootstrap {
	return Bootstrap{
		Cities:     []City{},
		Categories: []Category{},
		Guests:     []Guest{},
		Checks:     []Check{},
	}
}
