package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/amirphl/counter-app/app/services"
	"github.com/amirphl/counter-app/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewJanitorRunOnce(t *testing.T) {
	store := services.NewMemoryViewStateStore(10 * time.Millisecond)
	require.NoError(t, store.Save(context.Background(), &models.CounterView{ID: "a"}))
	require.NoError(t, store.Save(context.Background(), &models.CounterView{ID: "b"}))

	janitor := NewViewJanitor(store, time.Hour, zerolog.New(io.Discard))
	assert.Equal(t, 0, janitor.RunOnce())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 2, janitor.RunOnce())
	assert.Equal(t, 0, store.Len())
}

func TestViewJanitorStart(t *testing.T) {
	store := services.NewMemoryViewStateStore(10 * time.Millisecond)
	require.NoError(t, store.Save(context.Background(), &models.CounterView{ID: "j"}))

	stop := NewViewJanitor(store, 5*time.Millisecond, zerolog.New(io.Discard)).Start(context.Background())
	defer stop()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}
