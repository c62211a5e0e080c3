package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirphl/counter-app/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestView(id string, displayed int64) *models.CounterView {
	return &models.CounterView{
		ID:          id,
		CounterID:   1,
		CounterName: "main_counter",
		Displayed:   displayed,
	}
}

func testStoreRoundTrip(t *testing.T, store ViewStateStore) {
	ctx := context.Background()

	view, err := store.Load(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, view)

	require.NoError(t, store.Save(ctx, newTestView("v1", 3)))

	view, err = store.Load(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, int64(3), view.Displayed)
	assert.Equal(t, uint(1), view.CounterID)
	assert.Equal(t, "main_counter", view.CounterName)

	// Mutating the loaded copy does not affect the stored view until saved
	view.Displayed = -1
	reloaded, err := store.Load(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), reloaded.Displayed)

	require.NoError(t, store.Save(ctx, view))
	reloaded, err = store.Load(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), reloaded.Displayed)

	require.NoError(t, store.Delete(ctx, "v1"))
	view, err = store.Load(ctx, "v1")
	require.NoError(t, err)
	assert.Nil(t, view)

	assert.Error(t, store.Save(ctx, &models.CounterView{}))
}

func TestMemoryViewStateStore(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryViewStateStore(time.Hour))
}

func TestMemoryViewStateStoreExpiry(t *testing.T) {
	store := NewMemoryViewStateStore(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestView("short", 1)))
	require.NoError(t, store.Save(ctx, newTestView("other", 2)))
	assert.Equal(t, 2, store.Len())

	time.Sleep(50 * time.Millisecond)

	view, err := store.Load(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, view)

	assert.Equal(t, 1, store.PurgeExpired())
	assert.Equal(t, 0, store.Len())
}

func TestRedisViewStateStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	testStoreRoundTrip(t, NewRedisViewStateStore(rc, "counter:", time.Hour))
}

func TestRedisViewStateStoreKeysAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	store := NewRedisViewStateStore(rc, "counter:", time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestView("abc", 5)))
	assert.True(t, mr.Exists("counter:counter_view:abc"))
	assert.Equal(t, time.Minute, mr.TTL("counter:counter_view:abc"))

	mr.FastForward(2 * time.Minute)

	view, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestRedisViewStateStoreCorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	require.NoError(t, mr.Set("counter:counter_view:bad", "{not json"))

	store := NewRedisViewStateStore(rc, "counter:", time.Minute)
	_, err := store.Load(context.Background(), "bad")
	assert.Error(t, err)
}
