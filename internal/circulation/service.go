// Package circulation implements the borrow lifecycle: request, approval, checkout and return.
package circulation

import (
	"time"

	"go_library/internal/events"
	"go_library/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service runs borrow transitions. Every transition is one transaction.
type Service struct {
	db     *gorm.DB
	now    model.Clock
	bus    events.Broadcaster
	policy Policy
	logger *logrus.Entry
}

// NewService creates a circulation service
func NewService(db *gorm.DB, clock model.Clock, bus events.Broadcaster, policy Policy, logger *logrus.Entry) *Service {
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
		policy: policy,
		logger: logger.WithField("component", "circulation"),
	}
}

// RequestInput is the payload for a borrow request or a counter checkout
type RequestInput struct {
	UserID  int        `json:"userId" binding:"omitempty,min=1"`
	BookID  int        `json:"bookId" binding:"required,min=1"`
	DueDate *time.Time `json:"dueDate"`
	Notes   string     `json:"notes" binding:"max=1024"`
}

// NotesInput carries optional notes for approve and return
type NotesInput struct {
	Notes string `json:"notes" binding:"max=1024"`
}

// RejectInput carries the reason a request was denied
type RejectInput struct {
	Reason string `json:"reason" binding:"required,max=1024"`
}

// BorrowFilter narrows List. Status accepts the stored statuses and "overdue".
type BorrowFilter struct {
	Status string `form:"status"`
	UserID int    `form:"userId"`
	BookID int    `form:"bookId"`
}

// BorrowView is a borrow with its overdue state derived at a reference time
type BorrowView struct {
	model.Borrow
	IsOverdue     bool   `json:"isOverdue"`
	DaysOverdue   int    `json:"daysOverdue"`
	DisplayStatus string `json:"displayStatus"`
}

// NewView derives the overdue fields of b at ref
func NewView(b model.Borrow, ref time.Time) BorrowView {
	return BorrowView{
		Borrow:        b,
		IsOverdue:     b.IsOverdue(ref),
		DaysOverdue:   b.DaysOverdue(ref),
		DisplayStatus: b.DisplayStatus(ref),
	}
}

func borrowEvent(kind string, b *model.Borrow, actorID int, payload map[string]interface{}) events.Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["bookId"] = b.BookID
	payload["status"] = b.Status
	return events.Event{
		Topic:    model.TopicBorrows,
		Type:     kind,
		EntityID: b.ID,
		ActorID:  actorID,
		UserID:   b.UserID,
		Payload:  payload,
	}
}

func (s *Service) transitionLog(b *model.Borrow, actorID int, what string) {
	s.logger.WithFields(logrus.Fields{
		"borrow_id": b.ID,
		"user_id":   b.UserID,
		"book_id":   b.BookID,
		"status":    b.Status,
		"actor":     actorID,
	}).Info(what)
}
