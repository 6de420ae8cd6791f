// Package guestlist is the client side data store of a wedding guest list.
//
// Every write is applied to memory first, cached locally, then sent to the
// server. A record the server has not confirmed yet carries a negative
// placeholder id; once the server answers, the placeholder is substituted by
// the server record everywhere it is referenced. Writes that fail for lack of
// connectivity are either queued for replay or rolled back, depending on
// whether they could conflict with server side invariants.
package guestlist

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wedding-planner/internal/apperr"
	"wedding-planner/internal/models"
	"wedding-planner/internal/offline"
)

// CacheKey is the blob the last known dataset is stored under.
const CacheKey = "wedding-cache"

// ErrQueued reports a write that was kept locally and queued for replay. The
// record returned alongside it is the optimistic one.
var ErrQueued = errors.New("saved offline, will sync when back online")

// Queued reports whether err only means the write is waiting in the queue.
func Queued(err error) bool {
	return errors.Is(err, ErrQueued)
}

// Backend is the API the store talks to, scoped to one wedding code.
type Backend interface {
	Code() string
	Bootstrap(ctx context.Context) (models.Bootstrap, error)
	Send(ctx context.Context, method, path string, body any) (json.RawMessage, error)
}

// Blobs is the durable storage the cache lives in.
type Blobs interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

// Connectivity is told about the outcome of every round trip and announces
// when the network comes back.
type Connectivity interface {
	offline.Notifier
	MarkOnline()
	MarkOffline()
}

// Snapshot is a copy of the store state, safe to read after the call.
type Snapshot struct {
	Code         string
	Cities       []models.City
	Categories   []models.Category
	Guests       []models.Guest
	Checks       map[string]bool
	Draft        Filters
	Applied      Filters
	Bootstrapped bool
	Found        bool
	SyncBusy     bool
}

type cached struct {
	Code       string            `json:"code"`
	Cities     []models.City     `json:"cities"`
	Categories []models.Category `json:"categories"`
	Guests     []models.Guest    `json:"guests"`
	Checks     map[string]bool   `json:"checks"`
	Draft      Filters           `json:"draft"`
	Applied    Filters           `json:"applied"`
}

type Store struct {
	mu sync.Mutex

	backend Backend
	blobs   Blobs
	queue   *offline.Queue
	net     Connectivity
	log     zerolog.Logger
	now     func() time.Time

	cities       []models.City
	categories   []models.Category
	guests       []models.Guest
	checks       map[string]bool
	draft        Filters
	applied      Filters
	bootstrapped bool
	found        bool
	syncBusy     bool
	lastTemp     int64
	// confirmed counts creates the server has confirmed.
	confirmed uint64

	subs    map[int]func(Snapshot)
	nextSub int

	stopFlush func()
	flushes   sync.WaitGroup
	closed    bool
}

type Option func(*Store)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log.With().Str("component", "guestlist").Logger() }
}

// WithConnectivity wires a monitor that triggers queue replay when the
// network comes back.
func WithConnectivity(c Connectivity) Option {
	return func(s *Store) { s.net = c }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store for the wedding backend is scoped to. Call Bootstrap
// before anything else.
func New(backend Backend, blobs Blobs, queue *offline.Queue, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		blobs:      blobs,
		queue:      queue,
		log:        zerolog.Nop(),
		now:        time.Now,
		cities:     []models.City{},
		categories: []models.Category{},
		guests:     []models.Guest{},
		checks:     map[string]bool{},
		subs:       map[int]func(Snapshot){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Code returns the wedding code the store is scoped to.
func (s *Store) Code() string {
	return s.backend.Code()
}

// Subscribe calls fn with a fresh snapshot after every state change.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Cities() []models.City {
	return s.Snapshot().Cities
}

func (s *Store) Categories() []models.Category {
	return s.Snapshot().Categories
}

func (s *Store) Guests() []models.Guest {
	return s.Snapshot().Guests
}

// Checked returns the value of a check cell, false when never set.
func (s *Store) Checked(guestID, categoryID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks[models.CheckKey(guestID, categoryID)]
}

// Found reports whether the last successful bootstrap matched a live wedding.
func (s *Store) Found() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.found
}

func (s *Store) Bootstrapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootstrapped
}

func (s *Store) SyncBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncBusy
}

// Pending returns the number of writes waiting in the offline queue.
func (s *Store) Pending() int {
	return s.queue.Len()
}

// Close stops automatic replay. A replay already in flight is allowed to
// finish first.
func (s *Store) Close() {
	s.mu.Lock()
	stop := s.stopFlush
	s.stopFlush = nil
	s.closed = true
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.flushes.Wait()
}

func (s *Store) snapshotLocked() Snapshot {
	checks := make(map[string]bool, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	return Snapshot{
		Code:         s.backend.Code(),
		Cities:       append([]models.City(nil), s.cities...),
		Categories:   append([]models.Category(nil), s.categories...),
		Guests:       cloneGuests(s.guests),
		Checks:       checks,
		Draft:        s.draft.clone(),
		Applied:      s.applied.clone(),
		Bootstrapped: s.bootstrapped,
		Found:        s.found,
		SyncBusy:     s.syncBusy,
	}
}

// commitAndUnlock persists the cache, releases s.mu and notifies
// subscribers. s.mu must be held.
func (s *Store) commitAndUnlock() {
	if err := s.blobs.Set(CacheKey, cached{
		Code:       s.backend.Code(),
		Cities:     s.cities,
		Categories: s.categories,
		Guests:     s.guests,
		Checks:     s.checks,
		Draft:      s.draft,
		Applied:    s.applied,
	}); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist cache")
	}

	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// hydrate loads the cached dataset of the current code, if any.
func (s *Store) hydrate() {
	var c cached
	ok, err := s.blobs.Get(CacheKey, &c)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read cache")
		return
	}
	if !ok || c.Code != s.backend.Code() {
		return
	}

	s.mu.Lock()
	s.cities = orEmpty(c.Cities)
	s.categories = orEmpty(c.Categories)
	s.guests = orEmpty(c.Guests)
	s.checks = c.Checks
	if s.checks == nil {
		s.checks = map[string]bool{}
	}
	s.draft = c.Draft
	s.applied = c.Applied
	for _, id := range s.idsLocked() {
		if id < s.lastTemp {
			s.lastTemp = id
		}
	}
	s.commitAndUnlock()
}

// placeholderLocked returns a fresh negative id, strictly below every id
// handed out before.
func (s *Store) placeholderLocked() int64 {
	id := -s.now().UnixMilli()
	if id >= s.lastTemp {
		id = s.lastTemp - 1
	}
	s.lastTemp = id
	return id
}

func (s *Store) idsLocked() []int64 {
	ids := make([]int64, 0, len(s.cities)+len(s.categories)+len(s.guests))
	for _, c := range s.cities {
		ids = append(ids, c.ID)
	}
	for _, c := range s.categories {
		ids = append(ids, c.ID)
	}
	for _, g := range s.guests {
		ids = append(ids, g.ID)
	}
	return ids
}

// send issues a write and decodes the response into out when set. Every
// outcome is reported to the connectivity monitor.
func (s *Store) send(ctx context.Context, method, path string, body, out any) error {
	raw, err := s.backend.Send(ctx, method, path, body)
	if err != nil {
		if apperr.KindOf(err) == apperr.Transient {
			s.markOffline()
		} else {
			s.markOnline()
		}
		return err
	}
	s.markOnline()

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return apperr.Wrap(apperr.Internal, "malformed response", err)
		}
	}
	return nil
}

// enqueue records a write for replay under the current code.
func (s *Store) enqueue(method, path string, body any, placeholder int64) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to encode write", err)
	}
	_, err = s.queue.Enqueue(offline.Mutation{
		URL:         path,
		Method:      method,
		Body:        raw,
		Code:        s.backend.Code(),
		Placeholder: placeholder,
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("method", method).Str("url", path).Msg("Write queued for replay")
	return ErrQueued
}

func (s *Store) requireCode() error {
	if s.backend.Code() == "" {
		return apperr.New(apperr.Validation, "no wedding open")
	}
	return nil
}

func (s *Store) markOnline() {
	if s.net != nil {
		s.net.MarkOnline()
	}
}

func (s *Store) markOffline() {
	if s.net != nil {
		s.net.MarkOffline()
	}
}

func transient(err error) bool {
	return apperr.KindOf(err) == apperr.Transient
}

func pending(id int64) bool {
	return id < 0
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.New(apperr.Validation, "name required")
	}
	return name, nil
}

func sortCities(cities []models.City) {
	sort.SliceStable(cities, func(i, j int) bool {
		return strings.ToLower(cities[i].Name) < strings.ToLower(cities[j].Name)
	})
}

func cloneGuests(in []models.Guest) []models.Guest {
	out := make([]models.Guest, len(in))
	for i, g := range in {
		out[i] = g
		if g.CityID != nil {
			id := *g.CityID
			out[i].CityID = &id
		}
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
