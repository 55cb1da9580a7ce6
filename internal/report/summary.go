// Package report derives dashboards and per-user statistics from borrows and fees.
package report

import (
	"time"

	"go_library/internal/model"
)

// Dashboard is the library-wide overview
type Dashboard struct {
	TotalBorrows    int       `json:"totalBorrows"`
	Requests        int       `json:"requests"`
	Borrowed        int       `json:"borrowed"`
	Returned        int       `json:"returned"`
	Rejected        int       `json:"rejected"`
	Overdue         int       `json:"overdue"`
	TodayBorrows    int       `json:"todayBorrows"`
	TodayReturns    int       `json:"todayReturns"`
	TotalFees       int64     `json:"totalFees"`
	PaidFees        int64     `json:"paidFees"`
	UnpaidFees      int64     `json:"unpaidFees"`
	TotalBooks      int64     `json:"totalBooks"`
	TotalCopies     int64     `json:"totalCopies"`
	AvailableCopies int64     `json:"availableCopies"`
	TotalUsers      int64     `json:"totalUsers"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// UserStats summarizes one member's borrowing history
type UserStats struct {
	UserID        int   `json:"userId"`
	TotalBorrows  int   `json:"totalBorrows"`
	OnTimeReturns int   `json:"onTimeReturns"`
	LateReturns   int   `json:"lateReturns"`
	OverdueCount  int   `json:"overdueCount"`
	TotalFees     int64 `json:"totalFees"`
	UnpaidFees    int64 `json:"unpaidFees"`
}

// Summarize counts borrows by status and totals fees at ref
func Summarize(borrows []model.Borrow, fees []model.Fee, ref time.Time) Dashboard {
	d := Dashboard{TotalBorrows: len(borrows), GeneratedAt: ref}
	for i := range borrows {
		b := &borrows[i]
		switch b.Status {
		case model.BorrowStatusRequest:
			d.Requests++
		case model.BorrowStatusBorrowed:
			d.Borrowed++
		case model.BorrowStatusReturned:
			d.Returned++
		case model.BorrowStatusRejected:
			d.Rejected++
		}
		if b.IsOverdue(ref) {
			d.Overdue++
		}
		// a request is not a checkout yet
		if b.Status != model.BorrowStatusRequest && b.Status != model.BorrowStatusRejected && model.SameDay(b.BorrowDate, ref) {
			d.TodayBorrows++
		}
		if b.ReturnDate != nil && model.SameDay(*b.ReturnDate, ref) {
			d.TodayReturns++
		}
	}

	for _, f := range fees {
		d.TotalFees += f.Amount
		if f.Status == model.FeeStatusPaid {
			d.PaidFees += f.Amount
		} else {
			d.UnpaidFees += f.Amount
		}
	}
	return d
}

// UserStatistics summarizes the borrows and fees of one user at ref
func UserStatistics(userID int, borrows []model.Borrow, fees []model.Fee, ref time.Time) UserStats {
	s := UserStats{UserID: userID}
	for i := range borrows {
		b := &borrows[i]
		if b.UserID != userID {
			continue
		}
		s.TotalBorrows++
		switch {
		case b.Status == model.BorrowStatusReturned && b.ReturnedLate():
			s.LateReturns++
		case b.Status == model.BorrowStatusReturned:
			s.OnTimeReturns++
		case b.IsOverdue(ref):
			s.OverdueCount++
		}
	}
	for _, f := range fees {
		if f.UserID != userID {
			continue
		}
		s.TotalFees += f.Amount
		if f.Status == model.FeeStatusUnpaid {
			s.UnpaidFees += f.Amount
		}
	}
	return s
}
