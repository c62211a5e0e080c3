// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/counter-app/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CounterRepository defines operations for named counters
type CounterRepository interface {
	Repository[models.Counter, models.CounterFilter]
	ByName(ctx context.Context, name string) (*models.Counter, error)
	// GetOrCreate returns the counter with the given name, creating it with value 0 if absent
	GetOrCreate(ctx context.Context, name string) (*models.Counter, error)
	// UpdateValue overwrites the value of the counter with the given id.
	// It returns nil without an error when no such counter exists.
	UpdateValue(ctx context.Context, id uint, value int64) (*models.Counter, error)
}
