package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/counter-app/models"
	"github.com/amirphl/counter-app/utils"
	"gorm.io/gorm"
)

// CounterRepositoryImpl implements CounterRepository interface
type CounterRepositoryImpl struct {
	*BaseRepository[models.Counter, models.CounterFilter]
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &CounterRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Counter, models.CounterFilter](db),
	}
}

// ByName retrieves a counter by exact name
func (r *CounterRepositoryImpl) ByName(ctx context.Context, name string) (*models.Counter, error) {
	filter := models.CounterFilter{Name: &name}
	rows, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetOrCreate returns the named counter, inserting it with value 0 when it does not exist
func (r *CounterRepositoryImpl) GetOrCreate(ctx context.Context, name string) (*models.Counter, error) {
	counter, err := r.ByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find counter %q: %w", name, err)
	}
	if counter != nil {
		return counter, nil
	}

	counter = &models.Counter{Name: name, Value: 0}
	if err := r.Save(ctx, counter); err != nil {
		// A concurrent request may have created the same name first
		existing, lookupErr := r.ByName(ctx, name)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create counter %q: %w", name, err)
	}

	return counter, nil
}

// UpdateValue overwrites the counter value. Last write wins; there is no version check.
func (r *CounterRepositoryImpl) UpdateValue(ctx context.Context, id uint, value int64) (result *models.Counter, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = finishWrite(db, shouldCommit, err)
		if err != nil {
			result = nil
		}
	}()

	var row models.Counter
	if err = db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = nil
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find counter by ID %d: %w", id, err)
	}

	now := utils.UTCNow()
	if err = db.Model(&models.Counter{}).
		Where("id = ?", id).
		Updates(map[string]any{"value": value, "updated_at": now}).Error; err != nil {
		return nil, fmt.Errorf("failed to update counter %d: %w", id, err)
	}

	row.Value = value
	row.UpdatedAt = now
	return &row, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *CounterRepositoryImpl) applyFilter(query *gorm.DB, filter models.CounterFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves counters based on filter criteria
func (r *CounterRepositoryImpl) ByFilter(ctx context.Context, filter models.CounterFilter, orderBy string, limit, offset int) ([]*models.Counter, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Counter{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Counter
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of counters matching the filter
func (r *CounterRepositoryImpl) Count(ctx context.Context, filter models.CounterFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Counter{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any counter matching the filter exists
func (r *CounterRepositoryImpl) Exists(ctx context.Context, filter models.CounterFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
