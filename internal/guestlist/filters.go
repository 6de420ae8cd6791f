package guestlist

import (
	"strings"

	"wedding-planner/internal/models"
)

// ColumnFilter constrains guests by the value of one checkbox column.
type ColumnFilter string

const (
	Any       ColumnFilter = ""
	Checked   ColumnFilter = "checked"
	Unchecked ColumnFilter = "unchecked"
)

// Filters narrows the visible guest list. The zero value shows everyone.
type Filters struct {
	Search  string                 `json:"search,omitempty"`
	CityIDs []int64                `json:"cityIds,omitempty"`
	Columns map[int64]ColumnFilter `json:"columns,omitempty"`
}

// Empty reports whether f lets every guest through.
func (f Filters) Empty() bool {
	if strings.TrimSpace(f.Search) != "" || len(f.CityIDs) > 0 {
		return false
	}
	for _, v := range f.Columns {
		if v != Any {
			return false
		}
	}
	return true
}

func (f Filters) clone() Filters {
	out := Filters{Search: f.Search}
	if len(f.CityIDs) > 0 {
		out.CityIDs = append([]int64(nil), f.CityIDs...)
	}
	if len(f.Columns) > 0 {
		out.Columns = make(map[int64]ColumnFilter, len(f.Columns))
		for k, v := range f.Columns {
			out.Columns[k] = v
		}
	}
	return out
}

// remap swaps a placeholder id for its server id.
func (f *Filters) remap(from, to int64) {
	for i, id := range f.CityIDs {
		if id == from {
			f.CityIDs[i] = to
		}
	}
	if v, ok := f.Columns[from]; ok {
		delete(f.Columns, from)
		f.Columns[to] = v
	}
}

func (f Filters) match(g models.Guest, checks map[string]bool) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" && !strings.Contains(strings.ToLower(g.Name), q) {
		return false
	}

	if len(f.CityIDs) > 0 {
		if g.CityID == nil {
			return false
		}
		in := false
		for _, id := range f.CityIDs {
			if id == *g.CityID {
				in = true
				break
			}
		}
		if !in {
			return false
		}
	}

	for categoryID, want := range f.Columns {
		got := checks[models.CheckKey(g.ID, categoryID)]
		if want == Checked && !got || want == Unchecked && got {
			return false
		}
	}
	return true
}

// Draft returns the filters being edited.
func (s *Store) Draft() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.clone()
}

// Applied returns the filters the visible list is computed with.
func (s *Store) Applied() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied.clone()
}

// SetDraft replaces the draft. The visible list does not change until
// ApplyFilters.
func (s *Store) SetDraft(f Filters) {
	s.mu.Lock()
	s.draft = f.clone()
	s.commitAndUnlock()
}

// ApplyFilters makes the draft the applied filter set.
func (s *Store) ApplyFilters() {
	s.mu.Lock()
	s.applied = s.draft.clone()
	s.commitAndUnlock()
}

// ClearFilters resets both the draft and the applied filters.
func (s *Store) ClearFilters() {
	s.mu.Lock()
	s.draft = Filters{}
	s.applied = Filters{}
	s.commitAndUnlock()
}

// VisibleGuests returns the guests that pass the applied filters, in list order.
func (s *Store) VisibleGuests() []models.Guest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Guest, 0, len(s.guests))
	for _, g := range cloneGuests(s.guests) {
		if s.applied.match(g, s.checks) {
			out = append(out, g)
		}
	}
	return out
}
