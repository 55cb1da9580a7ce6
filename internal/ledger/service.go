// Package ledger records the fees charged against borrows and their payment.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"go_library/internal/apperr"
	"go_library/internal/events"
	"go_library/internal/model"
	"go_library/internal/session"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service implements the fee ledger
type Service struct {
	db     *gorm.DB
	now    model.Clock
	bus    events.Broadcaster
	logger *logrus.Entry
}

// NewService creates a ledger service
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
		logger: logger.WithField("component", "ledger"),
	}
}

// FeeInput is the payload for a manual fee
type FeeInput struct {
	BorrowID      int           `json:"borrowId" binding:"required,min=1"`
	UserID        int           `json:"userId" binding:"omitempty,min=1"`
	Type          model.FeeType `json:"type" binding:"required,fee_type"`
	Amount        int64         `json:"amount" binding:"required"`
	PaymentMethod string        `json:"paymentMethod" binding:"max=64"` // expected method, the fee stays unpaid
	Notes         string        `json:"notes" binding:"max=1024"`
}

// PayInput is the payload for settling a fee
type PayInput struct {
	PaymentMethod string `json:"paymentMethod" binding:"required,max=64"`
	Notes         string `json:"notes" binding:"max=1024"`
}

// FeeFilter narrows ListFees
type FeeFilter struct {
	Status   string `form:"status"`
	Type     string `form:"type"`
	UserID   int    `form:"userId"`
	BorrowID int    `form:"borrowId"`
}

// CreateFee charges a fee against a borrow
func (s *Service) CreateFee(ctx context.Context, actor session.Principal, in FeeInput) (*model.Fee, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	if _, err := model.ParseFeeType(string(in.Type)); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	now := s.now()
	fee := model.Fee{
		BorrowID:      in.BorrowID,
		Type:          in.Type,
		Amount:        in.Amount,
		Notes:         in.Notes,
		PaymentMethod: model.StrPtr(strings.TrimSpace(in.PaymentMethod)),
	}

	var batch events.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var borrow model.Borrow
		if err := tx.First(&borrow, in.BorrowID).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("borrow %d not found", in.BorrowID), err)
		}
		if in.UserID != 0 && in.UserID != borrow.UserID {
			return apperr.Validation(fmt.Sprintf("borrow %d belongs to user %d, not %d", borrow.ID, borrow.UserID, in.UserID))
		}
		fee.UserID = borrow.UserID
		return InsertFee(tx, &batch, now, actor.ID, &fee)
	})
	if err != nil {
		return nil, apperr.FromDB("failed to create fee", err)
	}
	batch.Flush(s.bus)

	s.logger.WithFields(logrus.Fields{
		"fee_id": fee.ID, "borrow_id": fee.BorrowID, "type": fee.Type, "amount": fee.Amount,
		"expected_method": model.StrVal(fee.PaymentMethod), "actor": actor.ID,
	}).Info("Fee created")
	return &fee, nil
}

// PayFee settles an unpaid fee exactly once. Amount never changes.
func (s *Service) PayFee(ctx context.Context, actor session.Principal, id int, in PayInput) (*model.Fee, error) {
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		return nil, apperr.Validation("paymentMethod is required")
	}

	now := s.now()
	var fee model.Fee
	var batch events.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&fee, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("fee %d not found", id), err)
		}
		if err := session.RequireSelfOrStaff(actor, fee.UserID); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":         model.FeeStatusPaid,
			"payment_method": method,
			"paid_at":        now,
			"updated_at":     now,
		}
		if in.Notes != "" {
			updates["notes"] = in.Notes
		}
		res := tx.Model(&model.Fee{}).
			Where("id = ? AND status = ?", id, model.FeeStatusUnpaid).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.AlreadyPaid(fmt.Sprintf("fee %d is already paid", id))
		}
		if err := tx.First(&fee, id).Error; err != nil {
			return err
		}

		return batch.Record(tx, now, events.Event{
			Topic:    model.TopicFees,
			Type:     events.FeePaid,
			EntityID: fee.ID,
			ActorID:  actor.ID,
			UserID:   fee.UserID,
			Payload:  map[string]interface{}{"amount": fee.Amount, "paymentMethod": method, "borrowId": fee.BorrowID},
		})
	})
	if err != nil {
		return nil, apperr.FromDB("failed to pay fee", err)
	}
	batch.Flush(s.bus)

	s.logger.WithFields(logrus.Fields{"fee_id": id, "method": method, "actor": actor.ID}).Info("Fee paid")
	return &fee, nil
}

// DeleteFee removes a fee
func (s *Service) DeleteFee(ctx context.Context, actor session.Principal, id int) error {
	if err := session.Require(actor, session.Staff...); err != nil {
		return err
	}

	now := s.now()
	var batch events.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fee model.Fee
		if err := tx.First(&fee, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("fee %d not found", id), err)
		}
		if err := tx.Delete(&fee).Error; err != nil {
			return err
		}
		return batch.Record(tx, now, feeDeleted(fee, actor.ID))
	})
	if err != nil {
		return apperr.FromDB("failed to delete fee", err)
	}
	batch.Flush(s.bus)

	s.logger.WithFields(logrus.Fields{"fee_id": id, "actor": actor.ID}).Info("Fee deleted")
	return nil
}

// GetFee returns a fee visible to actor
func (s *Service) GetFee(ctx context.Context, actor session.Principal, id int) (*model.Fee, error) {
	var fee model.Fee
	if err := s.db.WithContext(ctx).First(&fee, id).Error; err != nil {
		return nil, apperr.FromDB(fmt.Sprintf("fee %d not found", id), err)
	}
	if err := session.RequireSelfOrStaff(actor, fee.UserID); err != nil {
		return nil, err
	}
	return &fee, nil
}

// ListFees returns one page of fees. Members only see their own.
func (s *Service) ListFees(ctx context.Context, actor session.Principal, f FeeFilter, page model.Page) (model.PageResult[model.Fee], error) {
	if actor.ID == 0 {
		return model.PageResult[model.Fee]{}, apperr.Unauthorized("not logged in")
	}
	page = page.Normalize()
	query := s.db.WithContext(ctx).Model(&model.Fee{})

	if f.Status != "" {
		st, err := model.ParseFeeStatus(f.Status)
		if err != nil {
			return model.PageResult[model.Fee]{}, apperr.Validation(err.Error())
		}
		query = query.Where("status = ?", st)
	}
	if f.Type != "" {
		ft, err := model.ParseFeeType(f.Type)
		if err != nil {
			return model.PageResult[model.Fee]{}, apperr.Validation(err.Error())
		}
		query = query.Where("type = ?", ft)
	}
	if !actor.IsStaff() {
		query = query.Where("user_id = ?", actor.ID)
	} else if f.UserID > 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.BorrowID > 0 {
		query = query.Where("borrow_id = ?", f.BorrowID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return model.PageResult[model.Fee]{}, apperr.FromDB("failed to count fees", err)
	}
	var fees []model.Fee
	if err := query.Offset(page.Offset()).Limit(page.Size).Order("id DESC").Find(&fees).Error; err != nil {
		return model.PageResult[model.Fee]{}, apperr.FromDB("failed to fetch fees", err)
	}
	return model.NewPageResult(fees, total, page), nil
}
