package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	desc  Descriptor
	calls atomic.Int32
	data  []byte
	err   error
	gate  chan struct{}
}

func (s *stubSource) Describe() Descriptor { return s.desc }

func (s *stubSource) Acquire(ctx context.Context) ([]byte, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingObserver struct {
	mu                    sync.Mutex
	hits, misses, fetches int
	failures              int
}

func (o *countingObserver) CacheHit(Key)  { o.mu.Lock(); o.hits++; o.mu.Unlock() }
func (o *countingObserver) CacheMiss(Key) { o.mu.Lock(); o.misses++; o.mu.Unlock() }
func (o *countingObserver) Fetched(_ Key, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches++
	if err != nil {
		o.failures++
	}
}

func newStub(data string) *stubSource {
	return &stubSource{desc: Descriptor{Mode: ModeFile, Identifier: "plano.xlsx"}, data: []byte(data)}
}

func TestCache_HitWithinTTL(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	obs := &countingObserver{}
	c := NewCache(10*time.Minute, WithClock(clk.Now), WithObserver(obs))
	src := newStub("v1")

	first, err := c.Acquire(context.Background(), src)
	require.NoError(t, err)

	clk.Advance(9 * time.Minute)
	second, err := c.Acquire(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 1, obs.fetches)
}

func TestCache_RefetchAfterTTL(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache(10*time.Minute, WithClock(clk.Now))
	src := newStub("v1")

	e1, err := c.Fetch(context.Background(), src)
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	src.data = []byte("v2")

	e2, err := c.Fetch(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, []byte("v2"), e2.Data)
	assert.True(t, e2.FetchedAt.After(e1.FetchedAt))
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache(0, WithClock(clk.Now))
	src := newStub("v1")

	_, err := c.Acquire(context.Background(), src)
	require.NoError(t, err)

	clk.Advance(1000 * time.Hour)
	_, err = c.Acquire(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCache_FailuresNotCached(t *testing.T) {
	obs := &countingObserver{}
	c := NewCache(time.Hour, WithObserver(obs))
	src := newStub("v1")
	src.err = errors.New("boom")

	_, err := c.Acquire(context.Background(), src)
	require.Error(t, err)

	_, ok := c.Peek(src)
	assert.False(t, ok)

	src.err = nil
	data, err := c.Acquire(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data)

	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, 1, obs.failures)
}

func TestCache_SeparateKeys(t *testing.T) {
	c := NewCache(time.Hour)
	a := &stubSource{desc: Descriptor{Mode: ModeRemote, Identifier: "A"}, data: []byte("a")}
	b := &stubSource{desc: Descriptor{Mode: ModeRemote, Identifier: "B"}, data: []byte("b")}

	da, err := c.Acquire(context.Background(), a)
	require.NoError(t, err)
	db, err := c.Acquire(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, []byte("a"), da)
	assert.Equal(t, []byte("b"), db)
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestCache_ConcurrentMissesShareFetch(t *testing.T) {
	c := NewCache(time.Hour)
	src := newStub("v1")
	src.gate = make(chan struct{})

	const n = 8
	var wg sync.WaitGroup
	results := make([][]byte, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Acquire(context.Background(), src)
		}(i)
	}

	// Let the first caller enter Acquire before releasing it.
	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, time.Millisecond)
	close(src.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("v1"), results[i])
	}
	// Late arrivals may miss the in-flight call, but then hit the stored entry.
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCache_CallerCancelDoesNotFailOthers(t *testing.T) {
	c := NewCache(time.Hour)
	src := newStub("v1")
	src.gate = make(chan struct{})

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Acquire(firstCtx, src)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, time.Millisecond)

	type result struct {
		data []byte
		err  error
	}
	second := make(chan result, 1)
	go func() {
		data, err := c.Acquire(context.Background(), src)
		second <- result{data, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(src.gate)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, []byte("v1"), res.data)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCache_AbandonedFetchIsStillStored(t *testing.T) {
	c := NewCache(time.Hour)
	src := newStub("v1")
	src.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Acquire(ctx, src)
		done <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(src.gate)
	require.Eventually(t, func() bool {
		_, ok := c.Peek(src)
		return ok
	}, time.Second, time.Millisecond)

	data, err := c.Acquire(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestKey_String(t *testing.T) {
	k := Key{Mode: ModeRemote, Identifier: "abc", TTL: time.Second}
	assert.Equal(t, "remote|abc|1000000000", k.String())
}
