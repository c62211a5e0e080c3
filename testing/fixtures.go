// Package testing provides test utilities and database setup for testing the counter store
package testing

import (
	"fmt"
	"math/rand"

	"github.com/amirphl/counter-app/models"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCounter inserts a counter with the given name and value
func (tf *TestFixtures) CreateTestCounter(name string, value int64) (*models.Counter, error) {
	counter := &models.Counter{Name: name, Value: value}
	if err := tf.DB.DB.Create(counter).Error; err != nil {
		return nil, fmt.Errorf("failed to create test counter %s: %w", name, err)
	}
	// value 0 is omitted on insert in favour of the column default
	if value != 0 {
		return counter, nil
	}
	if err := tf.DB.DB.Last(counter, counter.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload test counter %s: %w", name, err)
	}
	return counter, nil
}

// RandomCounterName returns a counter name unlikely to collide with other fixtures
func (tf *TestFixtures) RandomCounterName(prefix string) string {
	return fmt.Sprintf("%s_%09d", prefix, rand.Intn(900000000)+100000000)
}
