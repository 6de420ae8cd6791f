package guestlist

import (
	"context"
	"net/http"
	"strings"

	"wedding-planner/internal/api"
	"wedding-planner/internal/apperr"
	"wedding-planner/internal/models"
)

var errSyncing = apperr.New(apperr.Validation, "still syncing, try again once it is saved")

// AddCity adds a city. Names are unique per wedding regardless of case; a
// duplicate is rejected before anything is sent.
func (s *Store) AddCity(ctx context.Context, name string) (models.City, error) {
	if err := s.requireCode(); err != nil {
		return models.City{}, err
	}
	name, err := cleanName(name)
	if err != nil {
		return models.City{}, err
	}

	s.mu.Lock()
	if cityNamed(s.cities, name, 0) {
		s.mu.Unlock()
		return models.City{}, apperr.Newf(apperr.Conflict, "city %q already exists", name)
	}
	city := models.City{ID: s.placeholderLocked(), Name: name}
	s.cities = append(s.cities, city)
	sortCities(s.cities)
	s.commitAndUnlock()

	req := models.CityRequest{Name: name}
	var created models.City
	err = s.send(ctx, http.MethodPost, api.PathCities, req, &created)
	switch {
	case err == nil:
		s.confirmCity(city.ID, created)
		return created, nil
	case transient(err):
		if qerr := s.enqueue(http.MethodPost, api.PathCities, req, city.ID); !Queued(qerr) {
			s.dropCity(city.ID)
			return models.City{}, qerr
		}
		return city, ErrQueued
	default:
		s.dropCity(city.ID)
		return models.City{}, err
	}
}

// RenameCity renames a city. Any failure rolls the rename back.
func (s *Store) RenameCity(ctx context.Context, id int64, name string) (models.City, error) {
	if err := s.requireCode(); err != nil {
		return models.City{}, err
	}
	name, err := cleanName(name)
	if err != nil {
		return models.City{}, err
	}

	s.mu.Lock()
	i := cityIndex(s.cities, id)
	switch {
	case i < 0:
		s.mu.Unlock()
		return models.City{}, apperr.New(apperr.NotFound, "city not found")
	case pending(id):
		s.mu.Unlock()
		return models.City{}, errSyncing
	case cityNamed(s.cities, name, id):
		s.mu.Unlock()
		return models.City{}, apperr.Newf(apperr.Conflict, "city %q already exists", name)
	}
	old := s.cities[i].Name
	s.cities[i].Name = name
	sortCities(s.cities)
	s.commitAndUnlock()

	var updated models.City
	if err := s.send(ctx, http.MethodPatch, api.PathCities, models.CityRequest{ID: id, Name: name}, &updated); err != nil {
		s.setCityName(id, old)
		return models.City{}, err
	}
	s.setCityName(id, updated.Name)
	return updated, nil
}

// DeleteCity removes a city and detaches its guests. Any failure restores both.
func (s *Store) DeleteCity(ctx context.Context, id int64) error {
	if err := s.requireCode(); err != nil {
		return err
	}

	s.mu.Lock()
	i := cityIndex(s.cities, id)
	switch {
	case i < 0:
		s.mu.Unlock()
		return apperr.New(apperr.NotFound, "city not found")
	case pending(id):
		s.mu.Unlock()
		return errSyncing
	}
	removed := s.cities[i]
	s.cities = append(s.cities[:i:i], s.cities[i+1:]...)
	var detached []int64
	for j := range s.guests {
		if s.guests[j].CityID != nil && *s.guests[j].CityID == id {
			s.guests[j].CityID = nil
			detached = append(detached, s.guests[j].ID)
		}
	}
	s.commitAndUnlock()

	if err := s.send(ctx, http.MethodDelete, api.PathCities, models.CityRequest{ID: id}, nil); err != nil {
		s.mu.Lock()
		s.cities = append(s.cities, removed)
		sortCities(s.cities)
		for _, gid := range detached {
			if j := guestIndex(s.guests, gid); j >= 0 && s.guests[j].CityID == nil {
				cid := id
				s.guests[j].CityID = &cid
			}
		}
		s.commitAndUnlock()
		return err
	}
	return nil
}

// confirmCity substitutes the server record for a placeholder city, inserting
// it when the placeholder is gone.
func (s *Store) confirmCity(placeholder int64, city models.City) {
	s.mu.Lock()
	s.confirmed++
	if i := cityIndex(s.cities, placeholder); i >= 0 {
		s.cities[i] = city
	} else if cityIndex(s.cities, city.ID) < 0 {
		s.cities = append(s.cities, city)
	}
	sortCities(s.cities)
	for j := range s.guests {
		if s.guests[j].CityID != nil && *s.guests[j].CityID == placeholder {
			cid := city.ID
			s.guests[j].CityID = &cid
		}
	}
	s.draft.remap(placeholder, city.ID)
	s.applied.remap(placeholder, city.ID)
	s.commitAndUnlock()

	s.remapQueue(api.PathCities, []string{"cityId"}, placeholder, city.ID)
}

func (s *Store) dropCity(id int64) {
	s.mu.Lock()
	if i := cityIndex(s.cities, id); i >= 0 {
		s.cities = append(s.cities[:i:i], s.cities[i+1:]...)
	}
	s.commitAndUnlock()
}

func (s *Store) setCityName(id int64, name string) {
	s.mu.Lock()
	if i := cityIndex(s.cities, id); i >= 0 {
		s.cities[i].Name = name
		sortCities(s.cities)
	}
	s.commitAndUnlock()
}

func cityIndex(cities []models.City, id int64) int {
	for i, c := range cities {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// cityNamed reports whether a city other than except is called name.
func cityNamed(cities []models.City, name string, except int64) bool {
	for _, c := range cities {
		if c.ID != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
