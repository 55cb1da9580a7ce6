package circulation

import (
	"testing"
	"time"

	"go_library/internal/apperr"
	"go_library/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueDateFor(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := DefaultPolicy()

	due, err := dueDateFor(start, nil, p)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 14), due)

	want := start.AddDate(0, 0, 7)
	due, err = dueDateFor(start, &want, p)
	require.NoError(t, err)
	assert.Equal(t, want, due)

	far := start.AddDate(0, 2, 0)
	due, err = dueDateFor(start, &far, p)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 30), due, "clamped to the maximum loan window")

	past := start.Add(-time.Hour)
	_, err = dueDateFor(start, &past, p)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = dueDateFor(start, &start, p)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRestampLoan(t *testing.T) {
	requested := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	approved := requested.AddDate(0, 0, 4)
	p := DefaultPolicy()

	start, due := restampLoan(requested, requested.AddDate(0, 0, 7), approved, p)
	assert.Equal(t, approved, start)
	assert.Equal(t, approved.AddDate(0, 0, 7), due)

	// a longer window set by an older policy is cut to today's maximum
	start, due = restampLoan(requested, requested.AddDate(0, 0, 45), approved, p)
	assert.Equal(t, approved, start)
	assert.Equal(t, approved.AddDate(0, 0, 30), due)
}

func TestLateFee(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		returned time.Time
		days     int
		amount   int64
	}{
		{"on time", due.Add(-time.Hour), 0, 0},
		{"exactly due", due, 0, 0},
		{"one second late", due.Add(time.Second), 1, 5000},
		{"five days", due.AddDate(0, 0, 5), 5, 25000},
		{"five days and change", due.AddDate(0, 0, 5).Add(time.Minute), 6, 30000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, amount := lateFee(due, tt.returned, 5000)
			assert.Equal(t, tt.days, days)
			assert.Equal(t, tt.amount, amount)
		})
	}
}

func TestCheckTransition(t *testing.T) {
	allowed := map[model.BorrowStatus][]model.BorrowStatus{
		model.BorrowStatusRequest:  {model.BorrowStatusBorrowed, model.BorrowStatusRejected},
		model.BorrowStatusBorrowed: {model.BorrowStatusReturned},
	}
	all := []model.BorrowStatus{
		model.BorrowStatusRequest, model.BorrowStatusBorrowed,
		model.BorrowStatusReturned, model.BorrowStatusRejected,
	}

	for _, from := range all {
		for _, to := range all {
			ok := false
			for _, a := range allowed[from] {
				ok = ok || a == to
			}
			err := checkTransition(&model.Borrow{Status: from}, to)
			if ok {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), "%s -> %s", from, to)
			}
		}
	}
}

func TestNewView_AgreesWithDaysOverdue(t *testing.T) {
	ref := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	b := model.Borrow{Status: model.BorrowStatusBorrowed, DueDate: ref.AddDate(0, 0, -5)}

	v := NewView(b, ref)
	assert.True(t, v.IsOverdue)
	assert.Equal(t, 5, v.DaysOverdue)
	assert.Equal(t, model.DaysOverdue(b.DueDate, ref), v.DaysOverdue)
	assert.Equal(t, model.DisplayStatusOverdue, v.DisplayStatus)

	b.Status = model.BorrowStatusReturned
	v = NewView(b, ref)
	assert.False(t, v.IsOverdue)
	assert.Zero(t, v.DaysOverdue)
	assert.Equal(t, "returned", v.DisplayStatus)
}
