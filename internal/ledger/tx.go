package ledger

import (
	"time"

	"go_library/internal/events"
	"go_library/internal/model"

	"gorm.io/gorm"
)

// InsertFee writes an unpaid fee and its event using tx.
// fee.BorrowID, UserID, Type and Amount must be set.
func InsertFee(tx *gorm.DB, batch *events.Batch, now time.Time, actorID int, fee *model.Fee) error {
	fee.Status = model.FeeStatusUnpaid
	fee.PaidAt = nil
	fee.Touch(now)
	if err := tx.Create(fee).Error; err != nil {
		return err
	}
	return batch.Record(tx, now, events.Event{
		Topic:    model.TopicFees,
		Type:     events.FeeCreated,
		EntityID: fee.ID,
		ActorID:  actorID,
		UserID:   fee.UserID,
		Payload:  map[string]interface{}{"borrowId": fee.BorrowID, "type": fee.Type, "amount": fee.Amount},
	})
}

// DeleteForBorrow removes every fee of a borrow using tx and returns how many went
func DeleteForBorrow(tx *gorm.DB, batch *events.Batch, now time.Time, actorID, borrowID int) (int, error) {
	var fees []model.Fee
	if err := tx.Where("borrow_id = ?", borrowID).Find(&fees).Error; err != nil {
		return 0, err
	}
	for _, fee := range fees {
		if err := tx.Delete(&model.Fee{}, fee.ID).Error; err != nil {
			return 0, err
		}
		if err := batch.Record(tx, now, feeDeleted(fee, actorID)); err != nil {
			return 0, err
		}
	}
	return len(fees), nil
}

// CountUnpaid returns the number of unpaid fees of a borrow
func CountUnpaid(tx *gorm.DB, borrowID int) (int64, error) {
	var n int64
	err := tx.Model(&model.Fee{}).
		Where("borrow_id = ? AND status = ?", borrowID, model.FeeStatusUnpaid).
		Count(&n).Error
	return n, err
}

func feeDeleted(fee model.Fee, actorID int) events.Event {
	return events.Event{
		Topic:    model.TopicFees,
		Type:     events.FeeDeleted,
		EntityID: fee.ID,
		ActorID:  actorID,
		UserID:   fee.UserID,
		Payload:  map[string]interface{}{"borrowId": fee.BorrowID, "type": fee.Type, "amount": fee.Amount, "status": fee.Status},
	}
}
