// Package offline keeps writes the server has not acknowledged yet and
// replays them, oldest first, when connectivity returns.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Key is the blob the queue is stored under.
const Key = "pending-mutations"

// ErrBusy is returned by Flush when another flush is already running.
var ErrBusy = errors.New("flush already in progress")

// Mutation is one write waiting for the server.
type Mutation struct {
	ID     string          `json:"id"`
	URL    string          `json:"url"`
	Method string          `json:"method"`
	Body   json.RawMessage `json:"body,omitempty"`
	// Code is the wedding the write belongs to.
	Code string `json:"code,omitempty"`
	// Placeholder is the local id of the record a create introduced.
	Placeholder int64 `json:"placeholder,omitempty"`
}

// Blobs is the durable storage the queue lives in.
type Blobs interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

// Sender issues a queued mutation against the server and returns the
// response body.
type Sender interface {
	Replay(ctx context.Context, m Mutation) (json.RawMessage, error)
}

// Notifier delivers "connectivity restored" events.
type Notifier interface {
	OnOnline(fn func()) (cancel func())
}

type Queue struct {
	mu     sync.Mutex
	blobs  Blobs
	sender Sender
	log    zerolog.Logger

	// running is closed when the current flush ends, nil when idle.
	flushMu sync.Mutex
	running chan struct{}
}

func New(blobs Blobs, sender Sender, log zerolog.Logger) *Queue {
	return &Queue{
		blobs:  blobs,
		sender: sender,
		log:    log.With().Str("component", "offline").Logger(),
	}
}

// Enqueue appends m to the end of the queue and returns its fresh id. A
// create carrying a placeholder goes ahead of the first queued mutation that
// already references that placeholder, so it replays before its dependents.
func (q *Queue) Enqueue(m Mutation) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load()
	if err != nil {
		return "", err
	}
	m.ID = uuid.NewString()

	at := len(list)
	if m.Placeholder != 0 {
		for i, queued := range list {
			if references(queued.Body, m.Placeholder) {
				at = i
				break
			}
		}
	}
	list = append(list, Mutation{})
	copy(list[at+1:], list[at:])
	list[at] = m
	if err := q.save(list); err != nil {
		return "", err
	}

	q.log.Debug().Str("id", m.ID).Str("method", m.Method).Str("url", m.URL).Int("pending", len(list)).Msg("Mutation queued")
	return m.ID, nil
}

// Dequeue removes the mutation with the given id.
func (q *Queue) Dequeue(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load()
	if err != nil {
		return err
	}
	out := list[:0]
	for _, m := range list {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return q.save(out)
}

// List returns a snapshot of the queue in replay order.
func (q *Queue) List() ([]Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

// Len returns the number of pending mutations, zero if the queue is unreadable.
func (q *Queue) Len() int {
	list, err := q.List()
	if err != nil {
		return 0
	}
	return len(list)
}

// Clear drops every pending mutation.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.save(nil)
}

// Remap rewrites references to a placeholder id in the bodies of pending
// mutations once the record it stands for has a server id. field names the
// body keys that may hold the placeholder; id is rewritten only on mutations
// whose URL is path. It returns the number of mutations changed.
func (q *Queue) Remap(path string, fields []string, from, to int64) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load()
	if err != nil {
		return 0, err
	}

	changed := 0
	for i, m := range list {
		if len(m.Body) == 0 {
			continue
		}
		var body map[string]any
		if err := json.Unmarshal(m.Body, &body); err != nil {
			continue
		}

		touched := false
		keys := fields
		if m.URL == path {
			keys = append([]string{"id"}, fields...)
		}
		for _, k := range keys {
			if v, ok := body[k].(float64); ok && int64(v) == from {
				body[k] = to
				touched = true
			}
		}
		if !touched {
			continue
		}

		raw, err := json.Marshal(body)
		if err != nil {
			return changed, fmt.Errorf("failed to encode remapped body: %w", err)
		}
		list[i].Body = raw
		changed++
	}

	if changed == 0 {
		return 0, nil
	}
	return changed, q.save(list)
}

// Flush replays the queue in FIFO order. Each confirmed mutation is dequeued
// and reported to onSuccess. The first failure is reported to onFailure and
// stops the flush, leaving that mutation and everything after it in place.
// A replay cut short by ctx is not a failure and is not reported.
// Only one flush runs at a time; a concurrent call returns ErrBusy.
func (q *Queue) Flush(ctx context.Context, onSuccess func(Mutation, json.RawMessage), onFailure func(Mutation, error)) (int, error) {
	if !q.acquire() {
		return 0, ErrBusy
	}
	defer q.release()

	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		head, ok, err := q.head()
		if err != nil {
			return sent, err
		}
		if !ok {
			break
		}

		resp, err := q.sender.Replay(ctx, head)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				q.log.Debug().Str("id", head.ID).Msg("Replay interrupted")
				return sent, err
			}
			q.log.Warn().Err(err).Str("id", head.ID).Str("url", head.URL).Msg("Replay failed, keeping queue")
			if onFailure != nil {
				onFailure(head, err)
			}
			return sent, err
		}

		if err := q.Dequeue(head.ID); err != nil {
			return sent, err
		}
		sent++
		if onSuccess != nil {
			onSuccess(head, resp)
		}
	}

	if sent > 0 {
		q.log.Info().Int("sent", sent).Msg("Offline queue flushed")
	}
	return sent, nil
}

// Flushing reports whether a flush is running.
func (q *Queue) Flushing() bool {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()
	return q.running != nil
}

// Idle returns a channel that is closed once no flush is running.
func (q *Queue) Idle() <-chan struct{} {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()
	if q.running != nil {
		return q.running
	}
	done := make(chan struct{})
	close(done)
	return done
}

// FlushWait is Flush, but waits for a running flush to end and then flushes
// again instead of returning ErrBusy.
func (q *Queue) FlushWait(ctx context.Context, onSuccess func(Mutation, json.RawMessage), onFailure func(Mutation, error)) (int, error) {
	for {
		n, err := q.Flush(ctx, onSuccess, onFailure)
		if !errors.Is(err, ErrBusy) {
			return n, err
		}
		select {
		case <-q.Idle():
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// AutoFlush flushes now and again on every connectivity-restored event from
// n. The returned stop function unsubscribes, waits for a running replay to
// finish and only then cancels ctx, so nothing in flight is abandoned.
func (q *Queue) AutoFlush(ctx context.Context, n Notifier, onSuccess func(Mutation, json.RawMessage), onFailure func(Mutation, error)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	var (
		mu      sync.Mutex
		stopped bool
		runs    sync.WaitGroup
	)
	spawn := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		runs.Add(1)
		go func() {
			defer runs.Done()
			if ctx.Err() != nil {
				return
			}
			if _, err := q.Flush(ctx, onSuccess, onFailure); err != nil && !errors.Is(err, ErrBusy) {
				q.log.Debug().Err(err).Msg("Auto flush stopped")
			}
		}()
	}

	unsubscribe := n.OnOnline(spawn)
	spawn()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
			unsubscribe()
			runs.Wait()
			cancel()
		})
	}
}

func (q *Queue) acquire() bool {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()
	if q.running != nil {
		return false
	}
	q.running = make(chan struct{})
	return true
}

func (q *Queue) release() {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()
	close(q.running)
	q.running = nil
}

// references reports whether any top-level field of body holds id.
func references(body json.RawMessage, id int64) bool {
	if len(body) == 0 {
		return false
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	for _, v := range fields {
		if n, ok := v.(float64); ok && int64(n) == id {
			return true
		}
	}
	return false
}

func (q *Queue) head() (Mutation, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load()
	if err != nil || len(list) == 0 {
		return Mutation{}, false, err
	}
	return list[0], true, nil
}

func (q *Queue) load() ([]Mutation, error) {
	var list []Mutation
	if _, err := q.blobs.Get(Key, &list); err != nil {
		return nil, fmt.Errorf("failed to load offline queue: %w", err)
	}
	return list, nil
}

func (q *Queue) save(list []Mutation) error {
	if list == nil {
		list = []Mutation{}
	}
	if err := q.blobs.Set(Key, list); err != nil {
		return fmt.Errorf("failed to save offline queue: %w", err)
	}
	return nil
}
