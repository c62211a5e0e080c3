package businessflow

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/counter-app/app/dto"
	"github.com/amirphl/counter-app/app/services"
	"github.com/amirphl/counter-app/config"
	"github.com/amirphl/counter-app/models"
	"github.com/amirphl/counter-app/repository"
	testingutil "github.com/amirphl/counter-app/testing"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCounterRepo lets tests force store outcomes the real store cannot produce on demand
type stubCounterRepo struct {
	repository.CounterRepository
	counter     *models.Counter
	updateErr   error
	updateCalls []int64
	stored      *models.Counter
}

func (s *stubCounterRepo) GetOrCreate(ctx context.Context, name string) (*models.Counter, error) {
	return s.counter, nil
}

func (s *stubCounterRepo) UpdateValue(ctx context.Context, id uint, value int64) (*models.Counter, error) {
	s.updateCalls = append(s.updateCalls, value)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	if s.counter == nil || s.counter.ID != id {
		return nil, nil
	}
	updated := *s.counter
	updated.Value = value
	return &updated, nil
}

func (s *stubCounterRepo) ByID(ctx context.Context, id uint) (*models.Counter, error) {
	return s.stored, nil
}

func newFlow(repo repository.CounterRepository, refetch bool) (CounterFlow, services.ViewStateStore) {
	store := services.NewMemoryViewStateStore(time.Hour)
	flow := NewCounterFlow(repo, store, config.CounterConfig{Name: "main_counter", ViewTTL: time.Hour, RefetchAfterWrite: refetch}, zerolog.New(io.Discard))
	return flow, store
}

func testMetadata() *ClientMetadata {
	md := NewClientMetadata("127.0.0.1", "go-test")
	md.SetRequestID("test-request")
	return md
}

func TestCounterFlowWithStore(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCounterRepository(testDB.DB)
		flow, _ := newFlow(repo, false)
		ctx := testingutil.CreateTestContext()
		md := testMetadata()

		t.Run("OpenShowsZeroForFreshCounter", func(t *testing.T) {
			page, err := flow.OpenCounter(ctx, "main_counter", md)
			require.NoError(t, err)
			assert.NotEmpty(t, page.ViewID)
			assert.Equal(t, "main_counter", page.CounterName)
			assert.Equal(t, int64(0), page.Value)
		})

		t.Run("IncrementThriceDecrementOnce", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			page, err := flow.OpenCounter(ctx, "main_counter", md)
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				page, err = flow.Increment(ctx, page.ViewID, md)
				require.NoError(t, err)
			}
			page, err = flow.Decrement(ctx, page.ViewID, md)
			require.NoError(t, err)
			assert.Equal(t, int64(2), page.Value)

			stored, err := repo.ByName(ctx, "main_counter")
			require.NoError(t, err)
			assert.Equal(t, int64(2), stored.Value)
		})

		t.Run("DecrementBelowZero", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			page, err := flow.OpenCounter(ctx, "main_counter", md)
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				page, err = flow.Decrement(ctx, page.ViewID, md)
				require.NoError(t, err)
			}
			assert.Equal(t, int64(-3), page.Value)

			current, err := flow.CurrentView(ctx, page.ViewID)
			require.NoError(t, err)
			if diff := cmp.Diff(page, current); diff != "" {
				t.Errorf("current view mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("NewPageStartsFromStoredValue", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			first, err := flow.OpenCounter(ctx, "main_counter", md)
			require.NoError(t, err)
			_, err = flow.Increment(ctx, first.ViewID, md)
			require.NoError(t, err)

			second, err := flow.OpenCounter(ctx, "main_counter", md)
			require.NoError(t, err)
			assert.NotEqual(t, first.ViewID, second.ViewID)
			assert.Equal(t, int64(1), second.Value)
		})

		t.Run("StalePageOverwritesNewerValue", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			stale, err := flow.OpenCounter(ctx, "main_counter", md)
			require.NoError(t, err)
			fresh, err := flow.OpenCounter(ctx, "main_counter", md)
			require.NoError(t, err)

			for i := 0; i < 5; i++ {
				_, err = flow.Increment(ctx, fresh.ViewID, md)
				require.NoError(t, err)
			}
			page, err := flow.Decrement(ctx, stale.ViewID, md)
			require.NoError(t, err)
			assert.Equal(t, int64(-1), page.Value)

			stored, err := repo.ByName(ctx, "main_counter")
			require.NoError(t, err)
			assert.Equal(t, int64(-1), stored.Value)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCounterFlowRefetchAfterWrite(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCounterRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		md := testMetadata()

		t.Run("StrictModeShowsStoredValue", func(t *testing.T) {
			stub := &stubCounterRepo{
				counter: &models.Counter{ID: 1, Name: "main_counter", Value: 0},
				stored:  &models.Counter{ID: 1, Name: "main_counter", Value: 42},
			}
			flow, _ := newFlow(stub, true)

			page, err := flow.OpenCounter(ctx, "main_counter", md)
			require.NoError(t, err)
			page, err = flow.Increment(ctx, page.ViewID, md)
			require.NoError(t, err)
			assert.Equal(t, int64(42), page.Value)
			assert.Equal(t, []int64{1}, stub.updateCalls)
		})

		t.Run("StrictModeAgainstStore", func(t *testing.T) {
			flow, _ := newFlow(repo, true)
			page, err := flow.OpenCounter(ctx, "strict_counter", md)
			require.NoError(t, err)

			page, err = flow.Increment(ctx, page.ViewID, md)
			require.NoError(t, err)
			assert.Equal(t, int64(1), page.Value)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCounterFlowSkipsPersistence(t *testing.T) {
	ctx := context.Background()
	md := testMetadata()

	t.Run("MissingIdentity", func(t *testing.T) {
		stub := &stubCounterRepo{}
		flow, store := newFlow(stub, false)

		view := &models.CounterView{ID: "1b4e28ba-2fa1-11d2-883f-0016d3cca427", CounterName: "main_counter"}
		require.NoError(t, store.Save(ctx, view))

		before := testutil.ToFloat64(counterPersistSkippedTotal)
		page, err := flow.Increment(ctx, view.ID, md)
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Value)
		assert.Empty(t, stub.updateCalls)
		assert.Equal(t, before+1, testutil.ToFloat64(counterPersistSkippedTotal))
	})

	t.Run("CounterDeletedUnderneath", func(t *testing.T) {
		stub := &stubCounterRepo{counter: &models.Counter{ID: 7, Name: "main_counter"}}
		flow, _ := newFlow(stub, false)

		page, err := flow.OpenCounter(ctx, "main_counter", md)
		require.NoError(t, err)
		stub.counter = nil

		before := testutil.ToFloat64(counterPersistSkippedTotal)
		page, err = flow.Decrement(ctx, page.ViewID, md)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), page.Value)
		assert.Equal(t, []int64{-1}, stub.updateCalls)
		assert.Equal(t, before+1, testutil.ToFloat64(counterPersistSkippedTotal))
	})
}

func TestCounterFlowStoreFailure(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("connection reset")
	stub := &stubCounterRepo{counter: &models.Counter{ID: 3, Name: "main_counter", Value: 5}}
	flow, _ := newFlow(stub, false)

	page, err := flow.OpenCounter(ctx, "main_counter", testMetadata())
	require.NoError(t, err)
	stub.updateErr = storeErr

	before := testutil.ToFloat64(counterOperationsTotal.WithLabelValues(opIncrement, resultError))
	_, err = flow.Increment(ctx, page.ViewID, testMetadata())
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "COUNTER_UPDATE_FAILED", bizErr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counterOperationsTotal.WithLabelValues(opIncrement, resultError)))

	// the display already moved before the write failed
	current, err := flow.CurrentView(ctx, page.ViewID)
	require.NoError(t, err)
	assert.Equal(t, &dto.CounterPageData{ViewID: page.ViewID, CounterName: "main_counter", Value: 6}, current)
}

func TestCounterFlowValidation(t *testing.T) {
	ctx := context.Background()
	flow, _ := newFlow(&stubCounterRepo{counter: &models.Counter{ID: 1}}, false)

	tests := []struct {
		name     string
		input    string
		expectOK bool
	}{
		{name: "empty", input: "", expectOK: false},
		{name: "too long", input: strings.Repeat("n", 101), expectOK: false},
		{name: "max length", input: strings.Repeat("n", 100), expectOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.OpenCounter(ctx, tt.input, nil)
			if tt.expectOK {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsInvalidCounterName(err))
		})
	}
}

func TestCounterFlowUnknownView(t *testing.T) {
	ctx := context.Background()
	flow, _ := newFlow(&stubCounterRepo{}, false)

	for _, id := range []string{"", "not-a-uuid", "6f1c7d2e-4b0a-4c55-9a43-0d6c1b2b9e11"} {
		_, err := flow.Increment(ctx, id, nil)
		assert.True(t, IsCounterViewNotFound(err), "view %q", id)

		_, err = flow.CurrentView(ctx, id)
		assert.True(t, IsCounterViewNotFound(err), "view %q", id)
	}
}
