package offline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-planner/internal/localstore"
)

// fakeSender fails every mutation whose URL is in failing.
type fakeSender struct {
	mu      sync.Mutex
	failing map[string]bool
	sent    []string
	block   chan struct{}
	calls   atomic.Int32
}

func (f *fakeSender) Replay(ctx context.Context, m Mutation) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[m.URL] {
		return nil, errors.New("offline")
	}
	f.sent = append(f.sent, m.URL)
	return json.RawMessage(`{"ok":true}`), nil
}

func (f *fakeSender) setFailing(url string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing == nil {
		f.failing = map[string]bool{}
	}
	f.failing[url] = fail
}

func urls(t *testing.T, q *Queue) []string {
	t.Helper()
	list, err := q.List()
	require.NoError(t, err)
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.URL)
	}
	return out
}

func TestEnqueueAssignsIDsInOrder(t *testing.T) {
	q := New(localstore.NewMemory(), &fakeSender{}, zerolog.Nop())

	a, err := q.Enqueue(Mutation{URL: "/a", Method: "POST"})
	require.NoError(t, err)
	b, err := q.Enqueue(Mutation{URL: "/b", Method: "POST"})
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, []string{"/a", "/b"}, urls(t, q))

	require.NoError(t, q.Dequeue(a))
	assert.Equal(t, []string{"/b"}, urls(t, q))
}

func TestEnqueueCreateAheadOfDependents(t *testing.T) {
	q := New(localstore.NewMemory(), &fakeSender{}, zerolog.Nop())

	_, err := q.Enqueue(Mutation{URL: "/cities", Method: "POST", Body: json.RawMessage(`{"name":"Austin"}`)})
	require.NoError(t, err)
	_, err = q.Enqueue(Mutation{URL: "/checks", Method: "POST", Body: json.RawMessage(`{"guestId":-7,"categoryId":2,"checked":true}`)})
	require.NoError(t, err)
	_, err = q.Enqueue(Mutation{URL: "/guests", Method: "POST", Body: json.RawMessage(`{"name":"Sam"}`), Placeholder: -7})
	require.NoError(t, err)
	_, err = q.Enqueue(Mutation{URL: "/categories", Method: "POST", Body: json.RawMessage(`{"name":"Meal"}`), Placeholder: -8})
	require.NoError(t, err)

	assert.Equal(t, []string{"/cities", "/guests", "/checks", "/categories"}, urls(t, q))
}

func TestFlushStopsAtFirstFailure(t *testing.T) {
	sender := &fakeSender{}
	q := New(localstore.NewMemory(), sender, zerolog.Nop())
	for _, u := range []string{"/a", "/b", "/c"} {
		_, err := q.Enqueue(Mutation{URL: u, Method: "POST"})
		require.NoError(t, err)
	}

	sender.setFailing("/b", true)
	var failed []string
	n, err := q.Flush(context.Background(), nil, func(m Mutation, err error) { failed = append(failed, m.URL) })
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"/b"}, failed)
	assert.Equal(t, []string{"/b", "/c"}, urls(t, q))
	assert.Equal(t, []string{"/a"}, sender.sent)

	sender.setFailing("/b", false)
	var ok []string
	n, err = q.Flush(context.Background(), func(m Mutation, _ json.RawMessage) { ok = append(ok, m.URL) }, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"/b", "/c"}, ok)
	assert.Empty(t, urls(t, q))
	assert.Equal(t, []string{"/a", "/b", "/c"}, sender.sent)
}

func TestFlushIsNotReentrant(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	q := New(localstore.NewMemory(), sender, zerolog.Nop())
	_, err := q.Enqueue(Mutation{URL: "/a", Method: "POST"})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = q.Flush(context.Background(), nil, nil)
	}()

	require.Eventually(t, q.Flushing, time.Second, time.Millisecond)
	_, err = q.Flush(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(sender.block)
	<-done
	assert.Equal(t, int32(1), sender.calls.Load())
	assert.Empty(t, urls(t, q))
}

func TestRemap(t *testing.T) {
	q := New(localstore.NewMemory(), &fakeSender{}, zerolog.Nop())
	_, err := q.Enqueue(Mutation{URL: "/guests", Method: "POST", Body: json.RawMessage(`{"name":"Sam","cityId":null}`), Placeholder: -100})
	require.NoError(t, err)
	_, err = q.Enqueue(Mutation{URL: "/checks", Method: "POST", Body: json.RawMessage(`{"guestId":-100,"categoryId":2,"checked":true}`)})
	require.NoError(t, err)
	_, err = q.Enqueue(Mutation{URL: "/guests", Method: "PATCH", Body: json.RawMessage(`{"id":-100,"name":"Sammy","cityId":null}`)})
	require.NoError(t, err)
	_, err = q.Enqueue(Mutation{URL: "/cities", Method: "POST", Body: json.RawMessage(`{"id":-100,"name":"Austin"}`)})
	require.NoError(t, err)

	n, err := q.Remap("/guests", []string{"guestId"}, -100, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := q.List()
	require.NoError(t, err)
	assert.JSONEq(t, `{"guestId":42,"categoryId":2,"checked":true}`, string(list[1].Body))
	assert.JSONEq(t, `{"id":42,"name":"Sammy","cityId":null}`, string(list[2].Body))
	assert.JSONEq(t, `{"id":-100,"name":"Austin"}`, string(list[3].Body))
}

type fakeNotifier struct {
	mu  sync.Mutex
	fns map[int]func()
	seq int
}

func (n *fakeNotifier) OnOnline(fn func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fns == nil {
		n.fns = map[int]func(){}
	}
	n.seq++
	id := n.seq
	n.fns[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.fns, id)
	}
}

func (n *fakeNotifier) fire() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, fn := range n.fns {
		fn()
	}
}

func TestAutoFlush(t *testing.T) {
	sender := &fakeSender{}
	sender.setFailing("/checks", true)
	q := New(localstore.NewMemory(), sender, zerolog.Nop())
	_, err := q.Enqueue(Mutation{URL: "/checks", Method: "POST"})
	require.NoError(t, err)

	n := &fakeNotifier{}
	stop := q.AutoFlush(context.Background(), n, nil, nil)

	require.Eventually(t, func() bool { return sender.calls.Load() >= 1 && !q.Flushing() }, time.Second, time.Millisecond)
	assert.Equal(t, 1, q.Len())

	sender.setFailing("/checks", false)
	n.fire()
	require.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, time.Millisecond)

	stop()
	n.mu.Lock()
	assert.Empty(t, n.fns)
	n.mu.Unlock()
}

// canceledSender behaves like a replay cut short by its caller.
type canceledSender struct{}

func (canceledSender) Replay(ctx context.Context, m Mutation) (json.RawMessage, error) {
	return nil, context.Canceled
}

func TestFlushInterruptedKeepsQueueQuietly(t *testing.T) {
	q := New(localstore.NewMemory(), canceledSender{}, zerolog.Nop())
	_, err := q.Enqueue(Mutation{URL: "/cities", Method: "POST"})
	require.NoError(t, err)

	failed := 0
	n, err := q.Flush(context.Background(), nil, func(Mutation, error) { failed++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, q.Len())
	assert.False(t, q.Flushing())
}

func TestFlushWaitFollowsRunningFlush(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	q := New(localstore.NewMemory(), sender, zerolog.Nop())
	_, err := q.Enqueue(Mutation{URL: "/a", Method: "POST"})
	require.NoError(t, err)

	go func() { _, _ = q.Flush(context.Background(), nil, nil) }()
	require.Eventually(t, q.Flushing, time.Second, time.Millisecond)

	_, err = q.Enqueue(Mutation{URL: "/b", Method: "POST"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := q.FlushWait(context.Background(), nil, nil)
		done <- err
	}()
	assert.Never(t, func() bool { return len(done) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(sender.block)
	require.NoError(t, <-done)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []string{"/a", "/b"}, sender.sent)
}

func TestFlushWaitHonorsContext(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	q := New(localstore.NewMemory(), sender, zerolog.Nop())
	_, err := q.Enqueue(Mutation{URL: "/a", Method: "POST"})
	require.NoError(t, err)

	go func() { _, _ = q.Flush(context.Background(), nil, nil) }()
	require.Eventually(t, q.Flushing, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.FlushWait(ctx, nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(sender.block)
	require.Eventually(t, func() bool { return !q.Flushing() }, time.Second, time.Millisecond)
}

func TestAutoFlushStopWaitsForReplay(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	q := New(localstore.NewMemory(), sender, zerolog.Nop())
	_, err := q.Enqueue(Mutation{URL: "/checks", Method: "POST"})
	require.NoError(t, err)

	stop := q.AutoFlush(context.Background(), &fakeNotifier{}, nil, nil)
	require.Eventually(t, q.Flushing, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()
	assert.Never(t, func() bool {
		select {
		case <-stopped:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(sender.block)
	<-stopped
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Flushing())
}
