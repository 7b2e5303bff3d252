package summary

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pagemind/core/internal/models"
	"github.com/pagemind/core/internal/modules/gemini"
	"github.com/pagemind/core/internal/modules/metrics"
	"github.com/pagemind/core/internal/modules/room"
	redisc "github.com/pagemind/core/internal/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	result  *gemini.Result
	err     error
	calls   int
	lastKey string
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, _ gemini.Options, apiKey string) (*gemini.Result, error) {
	f.calls++
	f.lastKey = apiKey
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type serviceFixture struct {
	svc   *Service
	rooms *room.Service
	cache *Cache
	gen   *fakeGenerator
	rc    *redisc.Client
	mr    *miniredis.Miniredis
}

func newServiceFixture(t *testing.T, defaultKey string) *serviceFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := redisc.Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	m := metrics.NewService(rc, nil)
	cache := NewCache(rc, m)
	rooms := room.NewService(rc, cache)
	gen := &fakeGenerator{result: &gemini.Result{
		Summary:   "Generated summary.",
		KeyPoints: []string{"alpha", "beta"},
	}}

	svc := NewService(cache, rooms, gen, defaultKey, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	}

	return &serviceFixture{svc: svc, rooms: rooms, cache: cache, gen: gen, rc: rc, mr: mr}
}

func (f *serviceFixture) counter(t *testing.T, name string) string {
	t.Helper()
	v, err := f.rc.Get(context.Background(), "metrics:"+name)
	require.NoError(t, err)
	return v
}

func TestSummarizeGeneratesOnMiss(t *testing.T) {
	f := newServiceFixture(t, "default-key")
	ctx := context.Background()

	rec, err := f.svc.Summarize(ctx, Request{
		URL:     "https://example.com/a",
		Title:   "Example",
		Content: "body text",
		UserID:  "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "se6lk0", rec.URLHash)
	assert.Equal(t, "Generated summary.", rec.Summary)
	assert.Equal(t, []string{"alpha", "beta"}, rec.KeyPoints)
	assert.Equal(t, "medium", rec.SummaryLength)
	assert.False(t, rec.FromCache)
	assert.Equal(t, "default-key", f.gen.lastKey)
	assert.Equal(t, 1, f.gen.calls)
	assert.Equal(t, "1", f.counter(t, "cache_misses"))
}

func TestSummarizeSecondRequestHitsCache(t *testing.T) {
	f := newServiceFixture(t, "default-key")
	ctx := context.Background()

	_, err := f.svc.Summarize(ctx, Request{URL: "https://example.com/a", Content: "body", UserID: "u1"})
	require.NoError(t, err)

	// Different content must not matter: the URL is the identity.
	rec, err := f.svc.Summarize(ctx, Request{URL: "https://example.com/a", Content: "entirely different", UserID: "u2"})
	require.NoError(t, err)

	assert.True(t, rec.FromCache)
	assert.Equal(t, "Generated summary.", rec.Summary)
	assert.Equal(t, "u1", rec.SummarizedBy, "cached record is returned unchanged")
	assert.Equal(t, 1, f.gen.calls, "no second generation")
	assert.Equal(t, "1", f.counter(t, "cache_hits"))
	assert.Equal(t, "1", f.counter(t, "cache_misses"))
}

func TestSummarizeEmptyURL(t *testing.T) {
	f := newServiceFixture(t, "k")
	_, err := f.svc.Summarize(context.Background(), Request{URL: "   "})
	assert.ErrorIs(t, err, ErrEmptyURL)
	assert.Zero(t, f.gen.calls)
}

func TestSummarizeMalformedRoomID(t *testing.T) {
	f := newServiceFixture(t, "k")
	_, err := f.svc.Summarize(context.Background(), Request{URL: "https://example.com", RoomID: "tooooolong"})
	assert.ErrorIs(t, err, ErrInvalidRoomID)
}

func TestSummarizeRoomWithoutCredential(t *testing.T) {
	f := newServiceFixture(t, "default-key")
	ctx := context.Background()

	_, err := f.rooms.Create(ctx, "ABC123", "creator", "")
	require.NoError(t, err)

	_, err = f.svc.Summarize(ctx, Request{URL: "https://example.com/x", RoomID: "ABC123", UserID: "u"})
	assert.ErrorIs(t, err, room.ErrNoCredential)
	assert.Zero(t, f.gen.calls, "credential failure must precede any generation attempt")
}

func TestSummarizeUsesRoomCredential(t *testing.T) {
	f := newServiceFixture(t, "default-key")
	ctx := context.Background()

	_, err := f.rooms.Create(ctx, "ABC123", "creator", "room-key")
	require.NoError(t, err)

	rec, err := f.svc.Summarize(ctx, Request{URL: "https://example.com/y", RoomID: "ABC123", UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, "room-key", f.gen.lastKey)

	// The summary lands in the room's index.
	records, err := f.rooms.ListSummaries(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.URLHash, records[0].URLHash)
}

func TestSummarizeNoDefaultCredential(t *testing.T) {
	f := newServiceFixture(t, "")
	_, err := f.svc.Summarize(context.Background(), Request{URL: "https://example.com/z", UserID: "u"})
	assert.ErrorIs(t, err, room.ErrNoCredential)
	assert.Zero(t, f.gen.calls)
}

func TestSummarizeGenerationFailureNotCached(t *testing.T) {
	f := newServiceFixture(t, "k")
	ctx := context.Background()
	f.gen.err = &gemini.GenerationError{Detail: "upstream exploded"}

	_, err := f.svc.Summarize(ctx, Request{URL: "https://example.com/fail", UserID: "u"})
	var genErr *gemini.GenerationError
	require.ErrorAs(t, err, &genErr)

	// Nothing was written; the next attempt is a fresh miss.
	f.gen.err = nil
	rec, err := f.svc.Summarize(ctx, Request{URL: "https://example.com/fail", UserID: "u"})
	require.NoError(t, err)
	assert.False(t, rec.FromCache)
	assert.Equal(t, 2, f.gen.calls)
}

func TestSummarizeCacheHitRecordsInRoom(t *testing.T) {
	f := newServiceFixture(t, "k")
	ctx := context.Background()

	_, err := f.rooms.Create(ctx, "ROOM01", "creator", "room-key")
	require.NoError(t, err)

	// Cached by a user outside the room.
	_, err = f.svc.Summarize(ctx, Request{URL: "https://example.com/shared", UserID: "u1"})
	require.NoError(t, err)

	// A room member hitting the cache still contributes it to the room.
	_, err = f.svc.Summarize(ctx, Request{URL: "https://example.com/shared", RoomID: "ROOM01", UserID: "u2"})
	require.NoError(t, err)

	records, err := f.rooms.ListSummaries(ctx, "ROOM01")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, f.gen.calls)
}

// blockingGenerator parks every Generate call until released, so a test can
// hold one generation in flight while more requests arrive.
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	calls int
}

func (g *blockingGenerator) Generate(_ context.Context, _ string, _ gemini.Options, _ string) (*gemini.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.once.Do(func() { close(g.started) })
	<-g.release
	return &gemini.Result{Summary: "Generated summary.", KeyPoints: []string{"alpha"}}, nil
}

func (g *blockingGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestSummarizeConcurrentMissesCollapse(t *testing.T) {
	f := newServiceFixture(t, "k")
	gen := &blockingGenerator{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f.svc.gen = gen

	req := Request{URL: "https://example.com/hot", Content: "body", UserID: "u"}
	results := make([]*models.SummaryRecord, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = f.svc.Summarize(context.Background(), req)
	}()

	// The leader is inside Generate; the follower misses the cache and
	// must join the in-flight call instead of starting its own.
	<-gen.started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = f.svc.Summarize(context.Background(), req)
	}()
	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Same(t, results[0], results[1], "followers share the leader's record")
	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, "2", f.counter(t, "cache_misses"), "both requests observed the miss")
}

func TestSummarizeRegeneratesAfterExpiry(t *testing.T) {
	f := newServiceFixture(t, "k")
	ctx := context.Background()

	_, err := f.svc.Summarize(ctx, Request{URL: "https://example.com/ttl", UserID: "u"})
	require.NoError(t, err)

	f.mr.FastForward(8 * 24 * time.Hour)

	rec, err := f.svc.Summarize(ctx, Request{URL: "https://example.com/ttl", UserID: "u"})
	require.NoError(t, err)
	assert.False(t, rec.FromCache)
	assert.Equal(t, 2, f.gen.calls)
	assert.Equal(t, "2", f.counter(t, "cache_misses"))
}
