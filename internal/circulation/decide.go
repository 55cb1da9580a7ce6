package circulation

import (
	"fmt"
	"time"

	"go_library/internal/apperr"
	"go_library/internal/model"
)

// dueDateFor picks the due date of a new loan starting at borrowDate
func dueDateFor(borrowDate time.Time, requested *time.Time, p Policy) (time.Time, error) {
	if requested == nil || requested.IsZero() {
		return borrowDate.AddDate(0, 0, p.DefaultLoanDays), nil
	}
	due := requested.UTC().Truncate(time.Second)
	if !due.After(borrowDate) {
		return time.Time{}, apperr.Validation("dueDate must be after the borrow date")
	}
	if limit := p.maxDue(borrowDate); due.After(limit) {
		return limit, nil
	}
	return due, nil
}

// restampLoan moves a request's loan window so it starts at approvedAt.
// The requested length is kept and clamped to the maximum loan window.
func restampLoan(requestedAt, requestedDue, approvedAt time.Time, p Policy) (time.Time, time.Time) {
	due := approvedAt.Add(requestedDue.Sub(requestedAt))
	if limit := p.maxDue(approvedAt); due.After(limit) {
		due = limit
	}
	return approvedAt, due
}

// checkTransition fails with InvalidState when the borrow may not move to next
func checkTransition(b *model.Borrow, next model.BorrowStatus) error {
	if b.Status.Terminal() {
		return apperr.InvalidState(fmt.Sprintf("borrow %d is already %s", b.ID, b.Status))
	}
	if !b.Status.CanTransitionTo(next) {
		return apperr.InvalidState(fmt.Sprintf("borrow %d is %s, cannot become %s", b.ID, b.Status, next))
	}
	return nil
}

// lateFee is the overdue day count and charge for a loan returned at returned
func lateFee(due, returned time.Time, rate int64) (int, int64) {
	days := model.DaysOverdue(due, returned)
	return days, int64(days) * rate
}
