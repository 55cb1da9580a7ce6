package circulation

import (
	"time"

	"go_library/internal/config"
)

// Policy holds the circulation rules
type Policy struct {
	DefaultLoanDays int
	MaxLoanDays     int
	DailyLateRate   int64
	BorrowFee       int64
	AutoLateFee     bool
}

// DefaultPolicy is a 14 day loan, at most 30 days, 5000 per late day, no borrow fee
func DefaultPolicy() Policy {
	return Policy{
		DefaultLoanDays: 14,
		MaxLoanDays:     30,
		DailyLateRate:   5000,
		AutoLateFee:     true,
	}
}

// PolicyFromConfig builds a Policy from the library section of the config
func PolicyFromConfig(c config.LibraryConfig) Policy {
	return Policy{
		DefaultLoanDays: c.DefaultLoanDays,
		MaxLoanDays:     c.MaxLoanDays,
		DailyLateRate:   c.DailyLateRate,
		BorrowFee:       c.BorrowFee,
		AutoLateFee:     c.AutoLateFee,
	}
}

func (p Policy) maxDue(borrowDate time.Time) time.Time {
	return borrowDate.AddDate(0, 0, p.MaxLoanDays)
}
