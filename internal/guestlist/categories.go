package guestlist

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"wedding-planner/internal/api"
	"wedding-planner/internal/apperr"
	"wedding-planner/internal/models"
)

// AddCategory adds a guest list column. typ defaults to checkbox.
func (s *Store) AddCategory(ctx context.Context, name string, typ models.ColumnType) (models.Category, error) {
	if err := s.requireCode(); err != nil {
		return models.Category{}, err
	}
	name, err := cleanName(name)
	if err != nil {
		return models.Category{}, err
	}
	if typ, err = columnType(typ, models.ColumnCheckbox); err != nil {
		return models.Category{}, err
	}

	s.mu.Lock()
	if categoryNamed(s.categories, name, 0) {
		s.mu.Unlock()
		return models.Category{}, apperr.Newf(apperr.Conflict, "column %q already exists", name)
	}
	category := models.Category{ID: s.placeholderLocked(), Name: name, Type: typ}
	s.categories = append(s.categories, category)
	s.commitAndUnlock()

	req := models.CategoryRequest{Name: name, Type: typ}
	var created models.Category
	err = s.send(ctx, http.MethodPost, api.PathCategories, req, &created)
	switch {
	case err == nil:
		s.confirmCategory(category.ID, created)
		return created, nil
	case transient(err):
		if qerr := s.enqueue(http.MethodPost, api.PathCategories, req, category.ID); !Queued(qerr) {
			s.dropCategory(category.ID)
			return models.Category{}, qerr
		}
		return category, ErrQueued
	default:
		s.dropCategory(category.ID)
		return models.Category{}, err
	}
}

// UpdateCategory renames a column and optionally changes its type. An empty
// typ keeps the current one. Any failure rolls the change back.
func (s *Store) UpdateCategory(ctx context.Context, id int64, name string, typ models.ColumnType) (models.Category, error) {
	if err := s.requireCode(); err != nil {
		return models.Category{}, err
	}
	name, err := cleanName(name)
	if err != nil {
		return models.Category{}, err
	}

	s.mu.Lock()
	i := categoryIndex(s.categories, id)
	switch {
	case i < 0:
		s.mu.Unlock()
		return models.Category{}, apperr.New(apperr.NotFound, "column not found")
	case pending(id):
		s.mu.Unlock()
		return models.Category{}, errSyncing
	case categoryNamed(s.categories, name, id):
		s.mu.Unlock()
		return models.Category{}, apperr.Newf(apperr.Conflict, "column %q already exists", name)
	}
	old := s.categories[i]
	if typ, err = columnType(typ, old.Type); err != nil {
		s.mu.Unlock()
		return models.Category{}, err
	}
	s.categories[i] = models.Category{ID: id, Name: name, Type: typ}
	s.commitAndUnlock()

	var updated models.Category
	if err := s.send(ctx, http.MethodPatch, api.PathCategories, models.CategoryRequest{ID: id, Name: name, Type: typ}, &updated); err != nil {
		s.putCategory(old)
		return models.Category{}, err
	}
	s.putCategory(updated)
	return updated, nil
}

// DeleteCategory removes a column together with all of its checks. Any
// failure restores both.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.requireCode(); err != nil {
		return err
	}

	s.mu.Lock()
	i := categoryIndex(s.categories, id)
	switch {
	case i < 0:
		s.mu.Unlock()
		return apperr.New(apperr.NotFound, "column not found")
	case pending(id):
		s.mu.Unlock()
		return errSyncing
	}
	removed := s.categories[i]
	s.categories = append(s.categories[:i:i], s.categories[i+1:]...)
	checks := s.takeChecksLocked(func(_, categoryID int64) bool { return categoryID == id })
	s.commitAndUnlock()

	if err := s.send(ctx, http.MethodDelete, api.PathCategories, models.CategoryRequest{ID: id}, nil); err != nil {
		s.mu.Lock()
		at := min(i, len(s.categories))
		s.categories = append(s.categories[:at:at], append([]models.Category{removed}, s.categories[at:]...)...)
		for k, v := range checks {
			if _, ok := s.checks[k]; !ok {
				s.checks[k] = v
			}
		}
		s.commitAndUnlock()
		return err
	}
	return nil
}

// confirmCategory substitutes the server record for a placeholder column.
func (s *Store) confirmCategory(placeholder int64, category models.Category) {
	s.mu.Lock()
	s.confirmed++
	if i := categoryIndex(s.categories, placeholder); i >= 0 {
		s.categories[i] = category
	} else if categoryIndex(s.categories, category.ID) < 0 {
		s.categories = append(s.categories, category)
	}
	for k, v := range s.takeChecksLocked(func(_, categoryID int64) bool { return categoryID == placeholder }) {
		guestID, _ := splitCheckKey(k)
		s.checks[models.CheckKey(guestID, category.ID)] = v
	}
	s.draft.remap(placeholder, category.ID)
	s.applied.remap(placeholder, category.ID)
	s.commitAndUnlock()

	s.remapQueue(api.PathCategories, []string{"categoryId"}, placeholder, category.ID)
}

func (s *Store) dropCategory(id int64) {
	s.mu.Lock()
	if i := categoryIndex(s.categories, id); i >= 0 {
		s.categories = append(s.categories[:i:i], s.categories[i+1:]...)
	}
	s.takeChecksLocked(func(_, categoryID int64) bool { return categoryID == id })
	s.commitAndUnlock()
}

func (s *Store) putCategory(c models.Category) {
	s.mu.Lock()
	if i := categoryIndex(s.categories, c.ID); i >= 0 {
		s.categories[i] = c
	}
	s.commitAndUnlock()
}

// takeChecksLocked removes and returns the checks whose key matches.
func (s *Store) takeChecksLocked(match func(guestID, categoryID int64) bool) map[string]bool {
	out := map[string]bool{}
	for k, v := range s.checks {
		guestID, categoryID := splitCheckKey(k)
		if match(guestID, categoryID) {
			out[k] = v
			delete(s.checks, k)
		}
	}
	return out
}

func splitCheckKey(k string) (guestID, categoryID int64) {
	g, c, _ := strings.Cut(k, ":")
	guestID, _ = strconv.ParseInt(g, 10, 64)
	categoryID, _ = strconv.ParseInt(c, 10, 64)
	return guestID, categoryID
}

func categoryIndex(categories []models.Category, id int64) int {
	for i, c := range categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func categoryNamed(categories []models.Category, name string, except int64) bool {
	for _, c := range categories {
		if c.ID != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func columnType(typ, fallback models.ColumnType) (models.ColumnType, error) {
	typ = models.ColumnType(strings.ToLower(strings.TrimSpace(string(typ))))
	if typ == "" {
		return fallback, nil
	}
	if !typ.Valid() {
		return "", apperr.Newf(apperr.Validation, "unknown column type %q", typ)
	}
	return typ, nil
}
