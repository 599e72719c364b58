package staging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(opts Options) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	return New(clock, opts, zap.NewNop()), clock
}

func sample(n string) []leads.Lead {
	return []leads.Lead{{Name: n, City: "Seattle"}}
}

func TestPutAndGet(t *testing.T) {
	store, _ := newTestStore(Options{})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attempt-1", sample("Matcha House")))

	got, err := store.Get(ctx, "attempt-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Matcha House", got[0].Name)

	// Get does not consume.
	got, err = store.Get(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestConsumeIsSingleUse(t *testing.T) {
	store, _ := newTestStore(Options{})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attempt-1", sample("Matcha House")))

	got, err := store.Consume(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = store.Consume(ctx, "attempt-1")
	assert.ErrorIs(t, err, leads.ErrAlreadyConsumed)

	_, err = store.Get(ctx, "attempt-1")
	assert.ErrorIs(t, err, leads.ErrAlreadyConsumed)
}

func TestUnknownAttempt(t *testing.T) {
	store, _ := newTestStore(Options{})

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, leads.ErrNotFound)

	_, err = store.Consume(context.Background(), "nope")
	assert.ErrorIs(t, err, leads.ErrNotFound)
}

func TestEntriesExpire(t *testing.T) {
	store, clock := newTestStore(Options{TTL: 30 * time.Minute})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attempt-1", sample("Matcha House")))

	clock.Advance(29 * time.Minute)
	_, err := store.Get(ctx, "attempt-1")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = store.Get(ctx, "attempt-1")
	assert.ErrorIs(t, err, leads.ErrNotFound)
	assert.Zero(t, store.Len())
}

func TestExpiredConsumedEntryReportsNotFound(t *testing.T) {
	store, clock := newTestStore(Options{TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attempt-1", sample("Matcha House")))
	_, err := store.Consume(ctx, "attempt-1")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = store.Consume(ctx, "attempt-1")
	assert.ErrorIs(t, err, leads.ErrNotFound)
}

func TestPutReplacesBatch(t *testing.T) {
	store, _ := newTestStore(Options{})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attempt-1", sample("Old")))
	require.NoError(t, store.Put(ctx, "attempt-1", sample("New")))

	got, err := store.Get(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, "New", got[0].Name)
}

func TestFullStoreEvictsOldest(t *testing.T) {
	store, clock := newTestStore(Options{MaxEntries: 2})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "attempt-1", sample("oldest")))
	clock.Advance(time.Second)
	require.NoError(t, store.Put(ctx, "attempt-2", sample("middle")))
	clock.Advance(time.Second)
	require.NoError(t, store.Put(ctx, "attempt-3", sample("newest")))

	_, err := store.Get(ctx, "attempt-1")
	assert.ErrorIs(t, err, leads.ErrNotFound)
	_, err = store.Get(ctx, "attempt-2")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "attempt-3")
	assert.NoError(t, err)
}

func TestCallerCannotMutateStagedBatch(t *testing.T) {
	store, _ := newTestStore(Options{})
	ctx := context.Background()

	batch := sample("Matcha House")
	require.NoError(t, store.Put(ctx, "attempt-1", batch))
	batch[0].Name = "Mutated"

	got, err := store.Get(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, "Matcha House", got[0].Name)

	got[0].Name = "Mutated Again"
	again, err := store.Get(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, "Matcha House", again[0].Name)
}

func TestPutRequiresAttemptID(t *testing.T) {
	store, _ := newTestStore(Options{})
	assert.Error(t, store.Put(context.Background(), "", sample("x")))
}
