package circulation

import (
	"context"
	"fmt"

	"go_library/internal/apperr"
	"go_library/internal/model"
	"go_library/internal/session"

	"gorm.io/gorm"
)

// books of closed loans may be soft-deleted
func withDeletedBook(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// Get returns one borrow visible to actor
func (s *Service) Get(ctx context.Context, actor session.Principal, id int) (*BorrowView, error) {
	var borrow model.Borrow
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Book", withDeletedBook).
		First(&borrow, id).Error
	if err != nil {
		return nil, apperr.FromDB(fmt.Sprintf("borrow %d not found", id), err)
	}
	if err := session.RequireSelfOrStaff(actor, borrow.UserID); err != nil {
		return nil, err
	}
	view := NewView(borrow, s.now())
	return &view, nil
}

// List returns one page of borrows. Members only see their own.
func (s *Service) List(ctx context.Context, actor session.Principal, f BorrowFilter, page model.Page) (model.PageResult[BorrowView], error) {
	if actor.ID == 0 {
		return model.PageResult[BorrowView]{}, apperr.Unauthorized("not logged in")
	}
	page = page.Normalize()
	ref := s.now()
	query := s.db.WithContext(ctx).Model(&model.Borrow{})

	switch f.Status {
	case "":
	case model.DisplayStatusOverdue:
		query = query.Where("status = ? AND due_date < ?", model.BorrowStatusBorrowed, ref)
	default:
		st, err := model.ParseBorrowStatus(f.Status)
		if err != nil {
			return model.PageResult[BorrowView]{}, apperr.Validation(err.Error())
		}
		query = query.Where("status = ?", st)
	}
	if !actor.IsStaff() {
		query = query.Where("user_id = ?", actor.ID)
	} else if f.UserID > 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.BookID > 0 {
		query = query.Where("book_id = ?", f.BookID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return model.PageResult[BorrowView]{}, apperr.FromDB("failed to count borrows", err)
	}

	var borrows []model.Borrow
	if err := query.
		Preload("User").
		Preload("Book", withDeletedBook).
		Offset(page.Offset()).
		Limit(page.Size).
		Order("id DESC").
		Find(&borrows).Error; err != nil {
		return model.PageResult[BorrowView]{}, apperr.FromDB("failed to fetch borrows", err)
	}

	views := make([]BorrowView, len(borrows))
	for i, b := range borrows {
		views[i] = NewView(b, ref)
	}
	return model.NewPageResult(views, total, page), nil
}
