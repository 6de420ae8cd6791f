package guestlist

import (
	"context"
	"net/http"

	"wedding-planner/internal/api"
	"wedding-planner/internal/apperr"
	"wedding-planner/internal/models"
)

// AddGuest appends a guest, optionally in a city. When the network is down
// the guest stays and the write is queued.
func (s *Store) AddGuest(ctx context.Context, name string, cityID *int64) (models.Guest, error) {
	if err := s.requireCode(); err != nil {
		return models.Guest{}, err
	}
	name, err := cleanName(name)
	if err != nil {
		return models.Guest{}, err
	}

	s.mu.Lock()
	if cityID != nil && cityIndex(s.cities, *cityID) < 0 {
		s.mu.Unlock()
		return models.Guest{}, apperr.New(apperr.NotFound, "city not found")
	}
	guest := models.Guest{ID: s.placeholderLocked(), Name: name, CityID: copyID(cityID)}
	s.guests = append(s.guests, guest)
	s.commitAndUnlock()

	req := models.GuestRequest{Name: &name, CityID: copyID(cityID)}
	if cityID != nil && pending(*cityID) {
		if err := s.enqueue(http.MethodPost, api.PathGuests, req, guest.ID); !Queued(err) {
			s.dropGuest(guest.ID)
			return models.Guest{}, err
		}
		return guest, ErrQueued
	}

	var created models.Guest
	err = s.send(ctx, http.MethodPost, api.PathGuests, req, &created)
	switch {
	case err == nil:
		s.confirmGuest(guest.ID, created)
		return created, nil
	case transient(err):
		if qerr := s.enqueue(http.MethodPost, api.PathGuests, req, guest.ID); !Queued(qerr) {
			s.dropGuest(guest.ID)
			return models.Guest{}, qerr
		}
		return guest, ErrQueued
	default:
		s.dropGuest(guest.ID)
		return models.Guest{}, err
	}
}

// UpdateGuest renames a guest when name is set and moves it to cityID, nil
// meaning no city. When the network is down the change stays and is queued.
func (s *Store) UpdateGuest(ctx context.Context, id int64, name *string, cityID *int64) (models.Guest, error) {
	if err := s.requireCode(); err != nil {
		return models.Guest{}, err
	}
	if name != nil {
		clean, err := cleanName(*name)
		if err != nil {
			return models.Guest{}, err
		}
		name = &clean
	}

	s.mu.Lock()
	i := guestIndex(s.guests, id)
	if i < 0 {
		s.mu.Unlock()
		return models.Guest{}, apperr.New(apperr.NotFound, "guest not found")
	}
	if cityID != nil && cityIndex(s.cities, *cityID) < 0 {
		s.mu.Unlock()
		return models.Guest{}, apperr.New(apperr.NotFound, "city not found")
	}
	old := cloneGuests(s.guests[i : i+1])[0]
	if name != nil {
		s.guests[i].Name = *name
	}
	s.guests[i].CityID = copyID(cityID)
	guest := cloneGuests(s.guests[i : i+1])[0]
	s.commitAndUnlock()

	req := models.GuestRequest{ID: id, Name: name, CityID: copyID(cityID)}
	if pending(id) || cityID != nil && pending(*cityID) {
		if err := s.enqueue(http.MethodPatch, api.PathGuests, req, 0); !Queued(err) {
			s.putGuest(old)
			return models.Guest{}, err
		}
		return guest, ErrQueued
	}

	var updated models.Guest
	err := s.send(ctx, http.MethodPatch, api.PathGuests, req, &updated)
	switch {
	case err == nil:
		s.putGuest(updated)
		return updated, nil
	case transient(err):
		if qerr := s.enqueue(http.MethodPatch, api.PathGuests, req, 0); !Queued(qerr) {
			s.putGuest(old)
			return models.Guest{}, qerr
		}
		return guest, ErrQueued
	default:
		s.putGuest(old)
		return models.Guest{}, err
	}
}

// DeleteGuest removes a guest and its checks. Any failure restores both.
func (s *Store) DeleteGuest(ctx context.Context, id int64) error {
	if err := s.requireCode(); err != nil {
		return err
	}

	s.mu.Lock()
	i := guestIndex(s.guests, id)
	switch {
	case i < 0:
		s.mu.Unlock()
		return apperr.New(apperr.NotFound, "guest not found")
	case pending(id):
		s.mu.Unlock()
		return errSyncing
	}
	removed := cloneGuests(s.guests[i : i+1])[0]
	s.guests = append(s.guests[:i:i], s.guests[i+1:]...)
	checks := s.takeChecksLocked(func(guestID, _ int64) bool { return guestID == id })
	s.commitAndUnlock()

	if err := s.send(ctx, http.MethodDelete, api.PathGuests, models.GuestRequest{ID: id}, nil); err != nil {
		s.mu.Lock()
		at := min(i, len(s.guests))
		s.guests = append(s.guests[:at:at], append([]models.Guest{removed}, s.guests[at:]...)...)
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

// ToggleCheck sets the check cell of a guest and a column. Toggles are
// last-write-wins and always queued when the network is down.
func (s *Store) ToggleCheck(ctx context.Context, guestID, categoryID int64, checked bool) error {
	if err := s.requireCode(); err != nil {
		return err
	}
	if guestID == 0 || categoryID == 0 {
		return apperr.New(apperr.Validation, "guestId and categoryId required")
	}

	key := models.CheckKey(guestID, categoryID)
	s.mu.Lock()
	old, had := s.checks[key]
	s.checks[key] = checked
	s.commitAndUnlock()

	req := models.CheckRequest{GuestID: guestID, CategoryID: categoryID, Checked: checked}
	if pending(guestID) || pending(categoryID) {
		if err := s.enqueue(http.MethodPost, api.PathChecks, req, 0); !Queued(err) {
			s.restoreCheck(key, old, had)
			return err
		}
		return ErrQueued
	}

	err := s.send(ctx, http.MethodPost, api.PathChecks, req, nil)
	switch {
	case err == nil:
		return nil
	case transient(err):
		if qerr := s.enqueue(http.MethodPost, api.PathChecks, req, 0); !Queued(qerr) {
			s.restoreCheck(key, old, had)
			return qerr
		}
		return ErrQueued
	default:
		s.restoreCheck(key, old, had)
		return err
	}
}

// confirmGuest substitutes the server id for a placeholder guest.
func (s *Store) confirmGuest(placeholder int64, guest models.Guest) {
	s.mu.Lock()
	s.confirmed++
	if i := guestIndex(s.guests, placeholder); i >= 0 {
		// local edits made while the create was in flight are queued
		// against the placeholder and win over the echoed fields
		s.guests[i].ID = guest.ID
	} else if guestIndex(s.guests, guest.ID) < 0 {
		s.guests = append(s.guests, guest)
	}
	for k, v := range s.takeChecksLocked(func(guestID, _ int64) bool { return guestID == placeholder }) {
		_, categoryID := splitCheckKey(k)
		s.checks[models.CheckKey(guest.ID, categoryID)] = v
	}
	s.commitAndUnlock()

	s.remapQueue(api.PathGuests, []string{"guestId"}, placeholder, guest.ID)
}

func (s *Store) dropGuest(id int64) {
	s.mu.Lock()
	if i := guestIndex(s.guests, id); i >= 0 {
		s.guests = append(s.guests[:i:i], s.guests[i+1:]...)
	}
	s.takeChecksLocked(func(guestID, _ int64) bool { return guestID == id })
	s.commitAndUnlock()
}

func (s *Store) putGuest(g models.Guest) {
	s.mu.Lock()
	if i := guestIndex(s.guests, g.ID); i >= 0 {
		s.guests[i] = g
	}
	s.commitAndUnlock()
}

func (s *Store) restoreCheck(key string, old, had bool) {
	s.mu.Lock()
	if had {
		s.checks[key] = old
	} else {
		delete(s.checks, key)
	}
	s.commitAndUnlock()
}

func guestIndex(guests []models.Guest, id int64) int {
	for i, g := range guests {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
