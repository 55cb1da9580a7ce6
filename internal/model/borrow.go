package model

import (
	"fmt"
	"time"
)

// BorrowStatus is the persisted state of a loan
type BorrowStatus string

const (
	BorrowStatusRequest  BorrowStatus = "request"
	BorrowStatusBorrowed BorrowStatus = "borrowed"
	BorrowStatusReturned BorrowStatus = "returned"
	BorrowStatusRejected BorrowStatus = "rejected"
)

// DisplayStatusOverdue is derived, never stored: borrowed and past due.
const DisplayStatusOverdue = "overdue"

// borrowTransitions lists the allowed moves. The empty status is "not yet created".
var borrowTransitions = map[BorrowStatus][]BorrowStatus{
	"":                   {BorrowStatusRequest, BorrowStatusBorrowed},
	BorrowStatusRequest:  {BorrowStatusBorrowed, BorrowStatusRejected},
	BorrowStatusBorrowed: {BorrowStatusReturned},
}

// ParseBorrowStatus converts a string into a BorrowStatus
func ParseBorrowStatus(s string) (BorrowStatus, error) {
	switch st := BorrowStatus(s); st {
	case BorrowStatusRequest, BorrowStatusBorrowed, BorrowStatusReturned, BorrowStatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("invalid borrow status %q", s)
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s BorrowStatus) CanTransitionTo(next BorrowStatus) bool {
	for _, allowed := range borrowTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s BorrowStatus) Terminal() bool {
	return s == BorrowStatusReturned || s == BorrowStatusRejected
}

// OpenBorrowStatuses are the states in which a loan still holds or awaits a copy
var OpenBorrowStatuses = []BorrowStatus{BorrowStatusRequest, BorrowStatusBorrowed}

// Borrow is a single loan of one copy of a book to a user
type Borrow struct {
	BaseModel
	UserID            int          `gorm:"not null;index" json:"userId"`
	BookID            int          `gorm:"not null;index" json:"bookId"`
	Status            BorrowStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	BorrowDate        time.Time    `gorm:"not null" json:"borrowDate"`
	DueDate           time.Time    `gorm:"not null;index" json:"dueDate"`
	ReturnDate        *time.Time   `json:"returnDate"`
	Notes             string       `gorm:"type:varchar(1024)" json:"notes"`
	RejectReason      string       `gorm:"type:varchar(1024)" json:"rejectReason,omitempty"`
	ApprovedBy        *int         `json:"approvedBy,omitempty"`
	OverdueNotifiedAt *time.Time   `json:"-"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

// TableName specifies the table name for Borrow model
func (Borrow) TableName() string {
	return "borrows"
}

// IsOverdue reports whether the loan is out and past due at ref
func (b *Borrow) IsOverdue(ref time.Time) bool {
	return b.Status == BorrowStatusBorrowed && b.DueDate.Before(ref)
}

// DaysOverdue is the overdue day count at ref, 0 when the loan is not overdue
func (b *Borrow) DaysOverdue(ref time.Time) int {
	if !b.IsOverdue(ref) {
		return 0
	}
	return DaysOverdue(b.DueDate, ref)
}

// DisplayStatus is the status shown to callers, with overdue derived at ref
func (b *Borrow) DisplayStatus(ref time.Time) string {
	if b.IsOverdue(ref) {
		return DisplayStatusOverdue
	}
	return string(b.Status)
}

// ReturnedLate reports whether a returned loan came back after its due date
func (b *Borrow) ReturnedLate() bool {
	return b.Status == BorrowStatusReturned && b.ReturnDate != nil && b.DueDate.Before(*b.ReturnDate)
}

// DaysOverdue returns ceil((ref - due) / 1 day), or 0 when ref is not after due.
// Every overdue figure in the system goes through this function.
func DaysOverdue(due, ref time.Time) int {
	if !ref.After(due) {
		return 0
	}
	d := ref.Sub(due)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
