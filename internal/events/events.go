// Package events records library state changes and hands them to a broadcaster after commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go_library/internal/apperr"
	"go_library/internal/model"
	"go_library/internal/session"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types
const (
	BorrowRequested  = "borrow.requested"
	BorrowApproved   = "borrow.approved"
	BorrowRejected   = "borrow.rejected"
	BorrowCheckedOut = "borrow.checked_out"
	BorrowReturned   = "borrow.returned"
	BorrowDeleted    = "borrow.deleted"
	BorrowOverdue    = "borrow.overdue"
	FeeCreated       = "fee.created"
	FeePaid          = "fee.paid"
	FeeDeleted       = "fee.deleted"
	BookQuantity     = "book.quantity_adjusted"
)

// Event describes one change before it is persisted
type Event struct {
	Topic    string
	Type     string
	EntityID int
	ActorID  int
	UserID   int // the member the change concerns, used for routing
	Payload  interface{}
}

// Broadcaster pushes committed events to connected clients
type Broadcaster interface {
	Broadcast(evt model.LibraryEvent)
}

// Nop discards broadcasts
type Nop struct{}

// Broadcast implements Broadcaster
func (Nop) Broadcast(model.LibraryEvent) {}

// Fanout hands each event to every Broadcaster in order
type Fanout []Broadcaster

// Broadcast implements Broadcaster
func (f Fanout) Broadcast(evt model.LibraryEvent) {
	for _, b := range f {
		b.Broadcast(evt)
	}
}

// Batch collects the events written inside one transaction
type Batch struct {
	events []model.LibraryEvent
}

// Record writes e to the event log using tx
func (b *Batch) Record(tx *gorm.DB, now time.Time, e Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	row := model.LibraryEvent{
		Topic:     e.Topic,
		EventType: e.Type,
		EntityID:  e.EntityID,
		ActorID:   e.ActorID,
		UserID:    e.UserID,
		Payload:   datatypes.JSON(payload),
		CreatedAt: now,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	b.events = append(b.events, row)
	return nil
}

// Flush broadcasts the recorded events. Call it only after the transaction committed.
func (b *Batch) Flush(to Broadcaster) {
	if to == nil {
		return
	}
	for _, e := range b.events {
		to.Broadcast(e)
	}
	b.events = nil
}

// Filter selects events for incremental sync
type Filter struct {
	Topic   string `form:"topic"`
	AfterID int64  `form:"afterId"`
	Limit   int    `form:"limit"`
}

// MaxListLimit caps one incremental read
const MaxListLimit = 500

// Normalize applies the default and maximum limit
func (f Filter) Normalize() Filter {
	if f.Limit < 1 || f.Limit > MaxListLimit {
		f.Limit = 100
	}
	return f
}

// Service reads the event log
type Service struct {
	db *gorm.DB
}

// NewService creates an event log reader
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns events with id > AfterID in id order. Members only see events about themselves.
func (s *Service) List(ctx context.Context, actor session.Principal, f Filter) ([]model.LibraryEvent, error) {
	if actor.ID == 0 {
		return nil, apperr.Unauthorized("not logged in")
	}
	f = f.Normalize()

	query := s.db.WithContext(ctx).Model(&model.LibraryEvent{}).Where("id > ?", f.AfterID)
	if f.Topic != "" {
		query = query.Where("topic = ?", f.Topic)
	}
	if !actor.IsStaff() {
		query = query.Where("user_id = ?", actor.ID)
	}

	var rows []model.LibraryEvent
	if err := query.Order("id ASC").Limit(f.Limit).Find(&rows).Error; err != nil {
		return nil, apperr.FromDB("failed to query events", err)
	}
	return rows, nil
}

// LatestID returns the newest event id, or 0 when the log is empty
func (s *Service) LatestID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.WithContext(ctx).Model(&model.LibraryEvent{}).
		Select("COALESCE(MAX(id), 0)").Scan(&id).Error; err != nil {
		return 0, apperr.FromDB("failed to query latest event", err)
	}
	return id, nil
}
