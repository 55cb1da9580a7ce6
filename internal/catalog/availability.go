package catalog

import (
	"fmt"
	"time"

	"go_library/internal/apperr"
	"go_library/internal/model"

	"gorm.io/gorm"
)

// Checkout takes one copy of a book out of the available pool.
// The check and the decrement are one UPDATE, so concurrent checkouts cannot over-commit.
func Checkout(tx *gorm.DB, bookID int, now time.Time) error {
	res := tx.Model(&model.Book{}).
		Where("id = ? AND available_copies > 0", bookID).
		Updates(map[string]interface{}{
			"available_copies": gorm.Expr("available_copies - 1"),
			"updated_at":       now,
		})
	if res.Error != nil {
		return apperr.FromDB("failed to check out copy", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := tx.Model(&model.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return apperr.FromDB("failed to load book", err)
	}
	if count == 0 {
		return apperr.NotFound(fmt.Sprintf("book %d not found", bookID))
	}
	return apperr.NoCopiesAvailable(fmt.Sprintf("no copies of book %d available", bookID))
}

// Checkin puts one copy back into the available pool, never beyond total copies
func Checkin(tx *gorm.DB, bookID int, now time.Time) error {
	res := tx.Unscoped().Model(&model.Book{}).
		Where("id = ? AND available_copies < total_copies", bookID).
		Updates(map[string]interface{}{
			"available_copies": gorm.Expr("available_copies + 1"),
			"updated_at":       now,
		})
	if res.Error != nil {
		return apperr.FromDB("failed to check in copy", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Internal(fmt.Sprintf("book %d availability out of sync", bookID), nil)
	}
	return nil
}
