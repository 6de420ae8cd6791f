package guestlist

import (
	"context"
	"encoding/json"
	"errors"

	"wedding-planner/internal/api"
	"wedding-planner/internal/apperr"
	"wedding-planner/internal/models"
	"wedding-planner/internal/offline"
)

// ErrSyncBusy is returned by SyncNow while another sync runs.
var ErrSyncBusy = errors.New("sync already in progress")

// Bootstrap shows the cached dataset of the current code, then replaces it
// with the server's. When the fetch fails the cached data stays and the
// store is still marked bootstrapped. Queue replay starts afterwards either way.
func (s *Store) Bootstrap(ctx context.Context) error {
	s.hydrate()

	err := s.refresh(ctx)

	s.mu.Lock()
	s.bootstrapped = true
	s.commitAndUnlock()

	s.startAutoFlush()
	return err
}

// SyncNow replays the offline queue and then reloads the dataset.
func (s *Store) SyncNow(ctx context.Context) error {
	s.mu.Lock()
	if s.syncBusy {
		s.mu.Unlock()
		return ErrSyncBusy
	}
	s.syncBusy = true
	s.commitAndUnlock()

	defer func() {
		s.mu.Lock()
		s.syncBusy = false
		s.commitAndUnlock()
	}()

	if _, err := s.queue.FlushWait(ctx, s.onReplayed, s.onReplayFailed); err != nil {
		return err
	}
	return s.refresh(ctx)
}

// maxRefetch bounds how often refresh starts over because a replayed create
// was confirmed while the dataset was being fetched.
const maxRefetch = 3

// refresh fetches the authoritative dataset. Records still waiting in the
// queue survive the overwrite.
func (s *Store) refresh(ctx context.Context) error {
	var data models.Bootstrap
	for attempt := 0; ; attempt++ {
		s.mu.Lock()
		seq := s.confirmed
		s.mu.Unlock()

		var err error
		data, err = s.backend.Bootstrap(ctx)
		if err != nil {
			if transient(err) {
				s.markOffline()
			}
			s.log.Warn().Err(err).Msg("Bootstrap failed, keeping cached data")
			return err
		}
		s.markOnline()

		s.mu.Lock()
		if s.confirmed == seq || attempt == maxRefetch {
			break
		}
		s.mu.Unlock()
		s.log.Debug().Msg("Record confirmed during bootstrap, fetching again")
	}

	// s.mu is held
	kept := s.pendingLocked()
	s.cities = append(orEmpty(data.Cities), kept.cities...)
	sortCities(s.cities)
	s.categories = append(orEmpty(data.Categories), kept.categories...)
	s.guests = append(orEmpty(data.Guests), kept.guests...)
	s.checks = make(map[string]bool, len(data.Checks)+len(kept.checks))
	for _, c := range data.Checks {
		s.checks[models.CheckKey(c.GuestID, c.CategoryID)] = c.Checked
	}
	for k, v := range kept.checks {
		s.checks[k] = v
	}
	s.found = data.Found
	s.commitAndUnlock()

	s.log.Debug().Bool("found", data.Found).Int("guests", len(data.Guests)).Msg("Bootstrapped")
	return nil
}

type pendingSet struct {
	cities     []models.City
	categories []models.Category
	guests     []models.Guest
	checks     map[string]bool
}

// pendingLocked collects the placeholder records that a queued create will
// still confirm, with the checks that reference them.
func (s *Store) pendingLocked() pendingSet {
	out := pendingSet{checks: map[string]bool{}}

	list, err := s.queue.List()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read offline queue")
		return out
	}
	queued := map[int64]bool{}
	for _, m := range list {
		if m.Placeholder != 0 && m.Code == s.backend.Code() {
			queued[m.Placeholder] = true
		}
	}
	if len(queued) == 0 {
		return out
	}

	for _, c := range s.cities {
		if queued[c.ID] {
			out.cities = append(out.cities, c)
		}
	}
	for _, c := range s.categories {
		if queued[c.ID] {
			out.categories = append(out.categories, c)
		}
	}
	for _, g := range cloneGuests(s.guests) {
		if queued[g.ID] {
			out.guests = append(out.guests, g)
		}
	}
	for k, v := range s.checks {
		guestID, categoryID := splitCheckKey(k)
		if queued[guestID] || queued[categoryID] {
			out.checks[k] = v
		}
	}
	return out
}

func (s *Store) startAutoFlush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopFlush != nil || s.closed {
		return
	}
	if s.net == nil {
		s.goFlush()
		s.stopFlush = func() {}
		return
	}
	s.stopFlush = s.queue.AutoFlush(context.Background(), s.net, s.onReplayed, s.onReplayFailed)
}

func (s *Store) flush(ctx context.Context) (int, error) {
	return s.queue.Flush(ctx, s.onReplayed, s.onReplayFailed)
}

// goFlush replays the queue in the background.
func (s *Store) goFlush() {
	s.flushes.Add(1)
	go func() {
		defer s.flushes.Done()
		if _, err := s.flush(context.Background()); err != nil && !errors.Is(err, offline.ErrBusy) {
			s.log.Debug().Err(err).Msg("Background flush stopped")
		}
	}()
}

func (s *Store) onReplayed(m offline.Mutation, resp json.RawMessage) {
	s.markOnline()
	if m.Placeholder == 0 || m.Code != s.backend.Code() {
		return
	}

	var err error
	switch m.URL {
	case api.PathCities:
		var c models.City
		if err = json.Unmarshal(resp, &c); err == nil {
			s.confirmCity(m.Placeholder, c)
		}
	case api.PathCategories:
		var c models.Category
		if err = json.Unmarshal(resp, &c); err == nil {
			s.confirmCategory(m.Placeholder, c)
		}
	case api.PathGuests:
		var g models.Guest
		if err = json.Unmarshal(resp, &g); err == nil {
			s.confirmGuest(m.Placeholder, g)
		}
	}
	if err != nil {
		s.log.Error().Err(err).Str("url", m.URL).Msg("Failed to decode replayed record")
	}
}

func (s *Store) onReplayFailed(m offline.Mutation, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if transient(err) {
		s.markOffline()
		return
	}
	s.markOnline()
	s.log.Error().Err(err).Str("kind", apperr.KindOf(err).String()).Str("method", m.Method).Str("url", m.URL).
		Msg("Server rejected a queued write, queue is blocked until it is cleared")
}

// remapQueue points queued writes at the server id of a confirmed record and
// replays them when something changed.
func (s *Store) remapQueue(path string, fields []string, from, to int64) {
	n, err := s.queue.Remap(path, fields, from, to)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to remap queued writes")
		return
	}
	if n == 0 || s.queue.Flushing() {
		return
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.goFlush()
	}
}
