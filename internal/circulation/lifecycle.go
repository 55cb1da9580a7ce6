package circulation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go_library/internal/apperr"
	"go_library/internal/catalog"
	"go_library/internal/events"
	"go_library/internal/ledger"
	"go_library/internal/model"
	"go_library/internal/session"

	"gorm.io/gorm"
)

// SubmitRequest files a borrow request. Availability is checked only on approval.
func (s *Service) SubmitRequest(ctx context.Context, actor session.Principal, in RequestInput) (*model.Borrow, error) {
	if in.UserID == 0 {
		in.UserID = actor.ID
	}
	if err := session.RequireSelfOrStaff(actor, in.UserID); err != nil {
		return nil, err
	}

	now := s.now()
	due, err := dueDateFor(now, in.DueDate, s.policy)
	if err != nil {
		return nil, err
	}

	borrow := model.Borrow{
		UserID:     in.UserID,
		BookID:     in.BookID,
		Status:     model.BorrowStatusRequest,
		BorrowDate: now,
		DueDate:    due,
		Notes:      strings.TrimSpace(in.Notes),
	}
	if err := checkTransition(&model.Borrow{}, borrow.Status); err != nil {
		return nil, err
	}

	var batch events.Batch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkNewLoan(tx, in.UserID, in.BookID); err != nil {
			return err
		}
		borrow.Touch(now)
		if err := tx.Create(&borrow).Error; err != nil {
			return err
		}
		return batch.Record(tx, now, borrowEvent(events.BorrowRequested, &borrow, actor.ID,
			map[string]interface{}{"dueDate": borrow.DueDate}))
	})
	if err != nil {
		return nil, apperr.FromDB("failed to submit borrow request", err)
	}
	batch.Flush(s.bus)

	s.transitionLog(&borrow, actor.ID, "Borrow requested")
	return &borrow, nil
}

// Approve checks out a copy for a pending request. The loan starts at approval
// and keeps the length that was requested.
func (s *Service) Approve(ctx context.Context, actor session.Principal, id int, in NotesInput) (*model.Borrow, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}

	now := s.now()
	var borrow model.Borrow
	var batch events.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&borrow, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("borrow %d not found", id), err)
		}
		if err := checkTransition(&borrow, model.BorrowStatusBorrowed); err != nil {
			return err
		}
		if err := catalog.Checkout(tx, borrow.BookID, now); err != nil {
			return err
		}

		borrowDate, due := restampLoan(borrow.BorrowDate, borrow.DueDate, now, s.policy)
		updates := map[string]interface{}{
			"status":      model.BorrowStatusBorrowed,
			"borrow_date": borrowDate,
			"due_date":    due,
			"approved_by": actor.ID,
			"updated_at":  now,
		}
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			updates["notes"] = notes
		}
		res := tx.Model(&model.Borrow{}).
			Where("id = ? AND status = ?", id, model.BorrowStatusRequest).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState(fmt.Sprintf("borrow %d is no longer a request", id))
		}
		if err := tx.First(&borrow, id).Error; err != nil {
			return err
		}

		if err := batch.Record(tx, now, borrowEvent(events.BorrowApproved, &borrow, actor.ID,
			map[string]interface{}{"dueDate": borrow.DueDate})); err != nil {
			return err
		}
		return s.chargeBorrowFee(tx, &batch, now, actor.ID, &borrow)
	})
	if err != nil {
		return nil, apperr.FromDB("failed to approve borrow", err)
	}
	batch.Flush(s.bus)

	s.transitionLog(&borrow, actor.ID, "Borrow approved")
	return &borrow, nil
}

// Reject denies a pending request and drops any fee already charged against it
func (s *Service) Reject(ctx context.Context, actor session.Principal, id int, in RejectInput) (*model.Borrow, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}

	now := s.now()
	var borrow model.Borrow
	var batch events.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&borrow, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("borrow %d not found", id), err)
		}
		if err := checkTransition(&borrow, model.BorrowStatusRejected); err != nil {
			return err
		}

		res := tx.Model(&model.Borrow{}).
			Where("id = ? AND status = ?", id, model.BorrowStatusRequest).
			Updates(map[string]interface{}{
				"status":        model.BorrowStatusRejected,
				"reject_reason": reason,
				"updated_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState(fmt.Sprintf("borrow %d is no longer a request", id))
		}
		if err := tx.First(&borrow, id).Error; err != nil {
			return err
		}

		removed, err := ledger.DeleteForBorrow(tx, &batch, now, actor.ID, id)
		if err != nil {
			return err
		}
		return batch.Record(tx, now, borrowEvent(events.BorrowRejected, &borrow, actor.ID,
			map[string]interface{}{"reason": reason, "feesRemoved": removed}))
	})
	if err != nil {
		return nil, apperr.FromDB("failed to reject borrow", err)
	}
	batch.Flush(s.bus)

	s.transitionLog(&borrow, actor.ID, "Borrow rejected")
	return &borrow, nil
}

// StaffCheckout lends a copy at the counter without a prior request
func (s *Service) StaffCheckout(ctx context.Context, actor session.Principal, in RequestInput) (*model.Borrow, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}
	if in.UserID == 0 {
		return nil, apperr.Validation("userId is required")
	}

	now := s.now()
	due, err := dueDateFor(now, in.DueDate, s.policy)
	if err != nil {
		return nil, err
	}

	approvedBy := actor.ID
	borrow := model.Borrow{
		UserID:     in.UserID,
		BookID:     in.BookID,
		Status:     model.BorrowStatusBorrowed,
		BorrowDate: now,
		DueDate:    due,
		Notes:      strings.TrimSpace(in.Notes),
		ApprovedBy: &approvedBy,
	}
	if err := checkTransition(&model.Borrow{}, borrow.Status); err != nil {
		return nil, err
	}

	var batch events.Batch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkNewLoan(tx, in.UserID, in.BookID); err != nil {
			return err
		}
		if err := catalog.Checkout(tx, in.BookID, now); err != nil {
			return err
		}
		borrow.Touch(now)
		if err := tx.Create(&borrow).Error; err != nil {
			return err
		}
		if err := batch.Record(tx, now, borrowEvent(events.BorrowCheckedOut, &borrow, actor.ID,
			map[string]interface{}{"dueDate": borrow.DueDate})); err != nil {
			return err
		}
		return s.chargeBorrowFee(tx, &batch, now, actor.ID, &borrow)
	})
	if err != nil {
		return nil, apperr.FromDB("failed to check out book", err)
	}
	batch.Flush(s.bus)

	s.transitionLog(&borrow, actor.ID, "Borrow checked out at counter")
	return &borrow, nil
}

// ReturnResult is a returned borrow and the late fee it produced, if any
type ReturnResult struct {
	Borrow      model.Borrow `json:"borrow"`
	DaysOverdue int          `json:"daysOverdue"`
	LateFee     *model.Fee   `json:"lateFee,omitempty"`
}

// Return checks a copy back in and charges a late fee when the loan came back after its due date
func (s *Service) Return(ctx context.Context, actor session.Principal, id int, in NotesInput) (*ReturnResult, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}

	now := s.now()
	result := &ReturnResult{}
	var batch events.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		borrow := &result.Borrow
		if err := tx.First(borrow, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("borrow %d not found", id), err)
		}
		if err := checkTransition(borrow, model.BorrowStatusReturned); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":      model.BorrowStatusReturned,
			"return_date": now,
			"updated_at":  now,
		}
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			updates["notes"] = notes
		}
		res := tx.Model(&model.Borrow{}).
			Where("id = ? AND status = ?", id, model.BorrowStatusBorrowed).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState(fmt.Sprintf("borrow %d is no longer on loan", id))
		}
		if err := catalog.Checkin(tx, borrow.BookID, now); err != nil {
			return err
		}
		if err := tx.First(borrow, id).Error; err != nil {
			return err
		}

		days, amount := lateFee(borrow.DueDate, now, s.policy.DailyLateRate)
		result.DaysOverdue = days
		if err := batch.Record(tx, now, borrowEvent(events.BorrowReturned, borrow, actor.ID,
			map[string]interface{}{"daysOverdue": days})); err != nil {
			return err
		}
		if days == 0 || !s.policy.AutoLateFee || amount <= 0 {
			return nil
		}

		fee := model.Fee{
			BorrowID: borrow.ID,
			UserID:   borrow.UserID,
			Type:     model.FeeTypeLate,
			Amount:   amount,
			Notes:    fmt.Sprintf("%d days overdue", days),
		}
		if err := ledger.InsertFee(tx, &batch, now, actor.ID, &fee); err != nil {
			return err
		}
		result.LateFee = &fee
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB("failed to return borrow", err)
	}
	batch.Flush(s.bus)

	s.transitionLog(&result.Borrow, actor.ID, "Borrow returned")
	return result, nil
}

// Delete removes a borrow from any state. A loan still out puts its copy back.
// Unpaid fees block deletion. Paid fees stay as revenue records.
func (s *Service) Delete(ctx context.Context, actor session.Principal, id int) error {
	if err := session.Require(actor, model.RoleAdmin); err != nil {
		return err
	}

	now := s.now()
	var borrow model.Borrow
	var batch events.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&borrow, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("borrow %d not found", id), err)
		}

		unpaid, err := ledger.CountUnpaid(tx, id)
		if err != nil {
			return err
		}
		if unpaid > 0 {
			return apperr.InvalidState(fmt.Sprintf("borrow %d has %d unpaid fees", id, unpaid))
		}

		res := tx.Where("id = ? AND status = ?", id, borrow.Status).Delete(&model.Borrow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState(fmt.Sprintf("borrow %d changed while deleting, retry", id))
		}
		if borrow.Status == model.BorrowStatusBorrowed {
			if err := catalog.Checkin(tx, borrow.BookID, now); err != nil {
				return err
			}
		}
		return batch.Record(tx, now, borrowEvent(events.BorrowDeleted, &borrow, actor.ID, nil))
	})
	if err != nil {
		return apperr.FromDB("failed to delete borrow", err)
	}
	batch.Flush(s.bus)

	s.transitionLog(&borrow, actor.ID, "Borrow deleted")
	return nil
}

// checkNewLoan validates the user and book of a new borrow using tx
func (s *Service) checkNewLoan(tx *gorm.DB, userID, bookID int) error {
	var user model.User
	if err := tx.First(&user, userID).Error; err != nil {
		return apperr.FromDB(fmt.Sprintf("user %d not found", userID), err)
	}
	if !user.Active {
		return apperr.Forbidden(fmt.Sprintf("user %s is inactive", user.Username))
	}

	var book model.Book
	if err := tx.First(&book, bookID).Error; err != nil {
		return apperr.FromDB(fmt.Sprintf("book %d not found", bookID), err)
	}

	var open int64
	if err := tx.Model(&model.Borrow{}).
		Where("user_id = ? AND book_id = ? AND status IN ?", userID, bookID, model.OpenBorrowStatuses).
		Count(&open).Error; err != nil {
		return err
	}
	if open > 0 {
		return apperr.InvalidState(fmt.Sprintf("user %d already has an open borrow of book %d", userID, bookID))
	}
	return nil
}

func (s *Service) chargeBorrowFee(tx *gorm.DB, batch *events.Batch, now time.Time, actorID int, b *model.Borrow) error {
	if s.policy.BorrowFee <= 0 {
		return nil
	}
	fee := model.Fee{
		BorrowID: b.ID,
		UserID:   b.UserID,
		Type:     model.FeeTypeBorrow,
		Amount:   s.policy.BorrowFee,
	}
	return ledger.InsertFee(tx, batch, now, actorID, &fee)
}
