package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/counter-app/app/dto"
	"github.com/amirphl/counter-app/app/services"
	"github.com/amirphl/counter-app/config"
	"github.com/amirphl/counter-app/models"
	"github.com/amirphl/counter-app/repository"
	"github.com/amirphl/counter-app/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CounterFlow drives the counter page: one view per rendered page, clicks write through to the store
type CounterFlow interface {
	OpenCounter(ctx context.Context, name string, metadata *ClientMetadata) (*dto.CounterPageData, error)
	Increment(ctx context.Context, viewID string, metadata *ClientMetadata) (*dto.CounterPageData, error)
	Decrement(ctx context.Context, viewID string, metadata *ClientMetadata) (*dto.CounterPageData, error)
	CurrentView(ctx context.Context, viewID string) (*dto.CounterPageData, error)
}

type CounterFlowImpl struct {
	counterRepo repository.CounterRepository
	viewStore   services.ViewStateStore
	validate    *validator.Validate
	refetch     bool
	logger      zerolog.Logger
}

func NewCounterFlow(
	counterRepo repository.CounterRepository,
	viewStore services.ViewStateStore,
	cfg config.CounterConfig,
	logger zerolog.Logger,
) CounterFlow {
	return &CounterFlowImpl{
		counterRepo: counterRepo,
		viewStore:   viewStore,
		validate:    validator.New(),
		refetch:     cfg.RefetchAfterWrite,
		logger:      logger.With().Str("component", "counter_flow").Logger(),
	}
}

func (f *CounterFlowImpl) OpenCounter(ctx context.Context, name string, metadata *ClientMetadata) (*dto.CounterPageData, error) {
	req := dto.OpenCounterRequest{Name: name}
	if err := f.validate.Struct(req); err != nil {
		counterOperationsTotal.WithLabelValues(opOpen, resultError).Inc()
		return nil, NewBusinessError("INVALID_COUNTER_NAME", "Counter name is required and must be at most 100 characters", fmt.Errorf("%w: %w", ErrInvalidCounterName, err))
	}

	counter, err := f.counterRepo.GetOrCreate(ctx, req.Name)
	if err != nil {
		counterOperationsTotal.WithLabelValues(opOpen, resultError).Inc()
		return nil, NewBusinessError("COUNTER_LOAD_FAILED", "Failed to load counter", err)
	}

	now := utils.UTCNow()
	view := &models.CounterView{
		ID:          uuid.NewString(),
		CounterID:   counter.ID,
		CounterName: counter.Name,
		Displayed:   counter.Value,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.viewStore.Save(ctx, view); err != nil {
		counterOperationsTotal.WithLabelValues(opOpen, resultError).Inc()
		return nil, NewBusinessError("COUNTER_VIEW_SAVE_FAILED", "Failed to save counter view", err)
	}

	f.event(metadata).
		Str("view_id", view.ID).
		Uint("counter_id", counter.ID).
		Int64("value", counter.Value).
		Msg("Counter page opened")
	counterOperationsTotal.WithLabelValues(opOpen, resultSuccess).Inc()

	return toCounterPageData(view), nil
}

func (f *CounterFlowImpl) Increment(ctx context.Context, viewID string, metadata *ClientMetadata) (*dto.CounterPageData, error) {
	return f.apply(ctx, opIncrement, viewID, 1, metadata)
}

func (f *CounterFlowImpl) Decrement(ctx context.Context, viewID string, metadata *ClientMetadata) (*dto.CounterPageData, error) {
	return f.apply(ctx, opDecrement, viewID, -1, metadata)
}

func (f *CounterFlowImpl) CurrentView(ctx context.Context, viewID string) (*dto.CounterPageData, error) {
	view, err := f.loadView(ctx, viewID)
	if err != nil {
		return nil, err
	}
	return toCounterPageData(view), nil
}

// apply moves the displayed value by delta, stores the view, then writes the new value to the counter.
// The display keeps the new value even when the write fails or is skipped.
func (f *CounterFlowImpl) apply(ctx context.Context, op, viewID string, delta int64, metadata *ClientMetadata) (*dto.CounterPageData, error) {
	view, err := f.loadView(ctx, viewID)
	if err != nil {
		counterOperationsTotal.WithLabelValues(op, resultError).Inc()
		return nil, err
	}

	view.Displayed += delta
	view.UpdatedAt = utils.UTCNow()
	if err := f.viewStore.Save(ctx, view); err != nil {
		counterOperationsTotal.WithLabelValues(op, resultError).Inc()
		return nil, NewBusinessError("COUNTER_VIEW_SAVE_FAILED", "Failed to save counter view", err)
	}

	if !view.HasIdentity() {
		f.skipPersist(view, metadata, "counter has no identity")
		counterOperationsTotal.WithLabelValues(op, resultSuccess).Inc()
		return toCounterPageData(view), nil
	}

	updated, err := f.counterRepo.UpdateValue(ctx, view.CounterID, view.Displayed)
	if err != nil {
		counterOperationsTotal.WithLabelValues(op, resultError).Inc()
		return nil, NewBusinessErrorf("COUNTER_UPDATE_FAILED", "Failed to update counter %d", err, view.CounterID)
	}
	if updated == nil {
		f.skipPersist(view, metadata, "counter not found")
		counterOperationsTotal.WithLabelValues(op, resultSuccess).Inc()
		return toCounterPageData(view), nil
	}

	if f.refetch {
		if err := f.syncFromStore(ctx, view); err != nil {
			counterOperationsTotal.WithLabelValues(op, resultError).Inc()
			return nil, err
		}
	}

	f.event(metadata).
		Str("operation", op).
		Str("view_id", view.ID).
		Uint("counter_id", view.CounterID).
		Int64("value", view.Displayed).
		Msg("Counter updated")
	counterOperationsTotal.WithLabelValues(op, resultSuccess).Inc()

	return toCounterPageData(view), nil
}

// syncFromStore replaces the displayed value with the stored one
func (f *CounterFlowImpl) syncFromStore(ctx context.Context, view *models.CounterView) error {
	stored, err := f.counterRepo.ByID(ctx, view.CounterID)
	if err != nil {
		return NewBusinessErrorf("COUNTER_FETCH_FAILED", "Failed to fetch counter %d", err, view.CounterID)
	}
	if stored == nil || stored.Value == view.Displayed {
		return nil
	}

	view.Displayed = stored.Value
	if err := f.viewStore.Save(ctx, view); err != nil {
		return NewBusinessError("COUNTER_VIEW_SAVE_FAILED", "Failed to save counter view", err)
	}
	return nil
}

func (f *CounterFlowImpl) loadView(ctx context.Context, viewID string) (*models.CounterView, error) {
	if _, err := uuid.Parse(viewID); err != nil {
		return nil, NewBusinessError("COUNTER_VIEW_NOT_FOUND", "Counter view not found", fmt.Errorf("%w: %w", ErrCounterViewNotFound, ErrInvalidViewID))
	}

	view, err := f.viewStore.Load(ctx, viewID)
	if err != nil {
		return nil, NewBusinessError("COUNTER_VIEW_LOAD_FAILED", "Failed to load counter view", err)
	}
	if view == nil {
		return nil, NewBusinessError("COUNTER_VIEW_NOT_FOUND", "Counter view not found", ErrCounterViewNotFound)
	}
	return view, nil
}

func (f *CounterFlowImpl) skipPersist(view *models.CounterView, metadata *ClientMetadata, reason string) {
	counterPersistSkippedTotal.Inc()
	f.logger.Warn().
		Str("view_id", view.ID).
		Uint("counter_id", view.CounterID).
		Int64("value", view.Displayed).
		Str("request_id", requestIDOf(metadata)).
		Msgf("Counter value kept on page only: %s", reason)
}

func (f *CounterFlowImpl) event(metadata *ClientMetadata) *zerolog.Event {
	e := f.logger.Debug()
	if metadata != nil {
		e = e.Str("request_id", metadata.RequestID).Str("ip", metadata.IPAddress)
	}
	return e
}

func requestIDOf(metadata *ClientMetadata) string {
	if metadata == nil {
		return ""
	}
	return metadata.RequestID
}

func toCounterPageData(view *models.CounterView) *dto.CounterPageData {
	return &dto.CounterPageData{
		ViewID:      view.ID,
		CounterName: view.CounterName,
		Value:       view.Displayed,
	}
}
