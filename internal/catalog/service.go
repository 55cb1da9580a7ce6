// Package catalog manages books, categories and the availability counters of books.
package catalog

import (
	"go_library/internal/events"
	"go_library/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service implements the catalog operations
type Service struct {
	db     *gorm.DB
	now    model.Clock
	bus    events.Broadcaster
	logger *logrus.Entry
}

// NewService creates a catalog service
func NewService(db *gorm.DB, clock model.Clock, bus events.Broadcaster, logger *logrus.Entry) *Service {
	if clock == nil {
		clock = model.Now
	}
	if bus == nil {
		bus = events.Nop{}
	}
	return &Service{
		db:     db,
		now:    clock,
		bus:    bus,
		logger: logger.WithField("component", "catalog"),
	}
}
