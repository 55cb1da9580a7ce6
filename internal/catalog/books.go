package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go_library/internal/apperr"
	"go_library/internal/events"
	"go_library/internal/model"
	"go_library/internal/session"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BookInput is the payload for creating a book
type BookInput struct {
	Title         string     `json:"title" binding:"required,max=255"`
	Author        string     `json:"author" binding:"max=255"`
	ISBN          string     `json:"isbn" binding:"max=32"`
	Publisher     string     `json:"publisher" binding:"max=255"`
	PublishedDate *time.Time `json:"publishedDate"`
	Description   string     `json:"description"`
	TotalCopies   int        `json:"totalCopies" binding:"min=0"`
	CategoryID    int        `json:"categoryId" binding:"required"`
}

// BookPatch updates book metadata. Copy counts change only through AdjustQuantity.
type BookPatch struct {
	Title         *string    `json:"title" binding:"omitempty,max=255"`
	Author        *string    `json:"author" binding:"omitempty,max=255"`
	ISBN          *string    `json:"isbn" binding:"omitempty,max=32"`
	Publisher     *string    `json:"publisher" binding:"omitempty,max=255"`
	PublishedDate *time.Time `json:"publishedDate"`
	Description   *string    `json:"description"`
	CategoryID    *int       `json:"categoryId"`
}

// BookFilter narrows ListBooks
type BookFilter struct {
	Q             string `form:"q"`
	CategoryID    int    `form:"categoryId"`
	AvailableOnly bool   `form:"availableOnly"`
}

// CreateBook adds a title with all copies available
func (s *Service) CreateBook(ctx context.Context, actor session.Principal, in BookInput) (*model.Book, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.ISBN = strings.TrimSpace(in.ISBN)
	if in.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	if in.TotalCopies < 0 {
		return nil, apperr.InvalidQuantity("totalCopies must not be negative")
	}

	now := s.now()
	book := model.Book{
		Title:           in.Title,
		Author:          strings.TrimSpace(in.Author),
		ISBN:            in.ISBN,
		Publisher:       strings.TrimSpace(in.Publisher),
		PublishedDate:   in.PublishedDate,
		Description:     in.Description,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		CategoryID:      &in.CategoryID,
	}
	book.Touch(now)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCategory(tx, in.CategoryID); err != nil {
			return err
		}
		if err := requireUniqueISBN(tx, in.ISBN, 0); err != nil {
			return err
		}
		return tx.Create(&book).Error
	})
	if err != nil {
		return nil, apperr.FromDB("failed to create book", err)
	}

	s.logger.WithFields(logrus.Fields{"book_id": book.ID, "actor": actor.ID}).Info("Book created")
	return s.GetBook(ctx, book.ID)
}

// UpdateBook changes book metadata
func (s *Service) UpdateBook(ctx context.Context, actor session.Principal, id int, patch BookPatch) (*model.Book, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperr.Validation("title must not be empty")
		}
		updates["title"] = title
	}
	if patch.Author != nil {
		updates["author"] = strings.TrimSpace(*patch.Author)
	}
	if patch.ISBN != nil {
		updates["isbn"] = strings.TrimSpace(*patch.ISBN)
	}
	if patch.Publisher != nil {
		updates["publisher"] = strings.TrimSpace(*patch.Publisher)
	}
	if patch.PublishedDate != nil {
		updates["published_date"] = *patch.PublishedDate
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.CategoryID != nil {
		updates["category_id"] = *patch.CategoryID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book model.Book
		if err := tx.First(&book, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("book %d not found", id), err)
		}
		if patch.CategoryID != nil {
			if err := requireCategory(tx, *patch.CategoryID); err != nil {
				return err
			}
		}
		if patch.ISBN != nil {
			if err := requireUniqueISBN(tx, strings.TrimSpace(*patch.ISBN), id); err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = s.now()
		return tx.Model(&book).Updates(updates).Error
	})
	if err != nil {
		return nil, apperr.FromDB("failed to update book", err)
	}
	return s.GetBook(ctx, id)
}

// AdjustQuantity sets the copy counts of a book.
// availableCopies must equal totalCopies minus the copies on loan, so the loan invariant holds.
func (s *Service) AdjustQuantity(ctx context.Context, actor session.Principal, id, totalCopies, availableCopies int) (*model.Book, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}
	if totalCopies < 0 || availableCopies < 0 {
		return nil, apperr.InvalidQuantity("copy counts must not be negative")
	}
	if availableCopies > totalCopies {
		return nil, apperr.InvalidQuantity(fmt.Sprintf("availableCopies (%d) cannot exceed totalCopies (%d)", availableCopies, totalCopies))
	}

	now := s.now()
	var batch events.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book model.Book
		if err := tx.First(&book, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("book %d not found", id), err)
		}

		onLoan := book.OnLoan()
		if totalCopies < onLoan {
			return apperr.InvalidQuantity(fmt.Sprintf("totalCopies (%d) is below the %d copies on loan", totalCopies, onLoan))
		}
		if availableCopies != totalCopies-onLoan {
			return apperr.InvalidQuantity(fmt.Sprintf("availableCopies must be %d with %d copies on loan", totalCopies-onLoan, onLoan))
		}

		// Guard on the on-loan count we validated against
		res := tx.Model(&model.Book{}).
			Where("id = ? AND total_copies - available_copies = ?", id, onLoan).
			Updates(map[string]interface{}{
				"total_copies":     totalCopies,
				"available_copies": availableCopies,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("book loans changed while adjusting quantity, retry")
		}

		return batch.Record(tx, now, events.Event{
			Topic:    model.TopicBooks,
			Type:     events.BookQuantity,
			EntityID: id,
			ActorID:  actor.ID,
			Payload: map[string]int{
				"totalCopies":     totalCopies,
				"availableCopies": availableCopies,
				"onLoan":          onLoan,
			},
		})
	})
	if err != nil {
		return nil, apperr.FromDB("failed to adjust quantity", err)
	}
	batch.Flush(s.bus)

	s.logger.WithFields(logrus.Fields{
		"book_id": id, "total": totalCopies, "available": availableCopies, "actor": actor.ID,
	}).Info("Book quantity adjusted")
	return s.GetBook(ctx, id)
}

// DeleteBook removes a book that has no open loans or requests.
// A book with loan history is soft-deleted so closed borrows keep pointing at it.
func (s *Service) DeleteBook(ctx context.Context, actor session.Principal, id int) error {
	if err := session.Require(actor, session.Staff...); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book model.Book
		if err := tx.First(&book, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("book %d not found", id), err)
		}

		var open int64
		if err := tx.Model(&model.Borrow{}).
			Where("book_id = ? AND status IN ?", id, model.OpenBorrowStatuses).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return apperr.InvalidState(fmt.Sprintf("book %d has %d open loans or requests", id, open))
		}

		var history int64
		if err := tx.Model(&model.Borrow{}).Where("book_id = ?", id).Count(&history).Error; err != nil {
			return err
		}
		if history == 0 {
			return tx.Unscoped().Delete(&book).Error
		}
		return tx.Delete(&book).Error
	})
	if err != nil {
		return apperr.FromDB("failed to delete book", err)
	}

	s.logger.WithFields(logrus.Fields{"book_id": id, "actor": actor.ID}).Info("Book deleted")
	return nil
}

// GetBook returns a book with its category
func (s *Service) GetBook(ctx context.Context, id int) (*model.Book, error) {
	var book model.Book
	if err := s.db.WithContext(ctx).Preload("Category").First(&book, id).Error; err != nil {
		return nil, apperr.FromDB(fmt.Sprintf("book %d not found", id), err)
	}
	return &book, nil
}

// ListBooks returns one page of books
func (s *Service) ListBooks(ctx context.Context, f BookFilter, page model.Page) (model.PageResult[model.Book], error) {
	page = page.Normalize()
	query := s.db.WithContext(ctx).Model(&model.Book{})

	if q := strings.TrimSpace(f.Q); q != "" {
		like := "%" + q + "%"
		query = query.Where("(title LIKE ? OR author LIKE ? OR isbn LIKE ?)", like, like, like)
	}
	if f.CategoryID > 0 {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if f.AvailableOnly {
		query = query.Where("available_copies > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return model.PageResult[model.Book]{}, apperr.FromDB("failed to count books", err)
	}

	var books []model.Book
	if err := query.Preload("Category").
		Offset(page.Offset()).
		Limit(page.Size).
		Order("id DESC").
		Find(&books).Error; err != nil {
		return model.PageResult[model.Book]{}, apperr.FromDB("failed to fetch books", err)
	}
	return model.NewPageResult(books, total, page), nil
}

func requireCategory(tx *gorm.DB, categoryID int) error {
	var count int64
	if err := tx.Model(&model.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound(fmt.Sprintf("category %d not found", categoryID))
	}
	return nil
}

func requireUniqueISBN(tx *gorm.DB, isbn string, exceptID int) error {
	if isbn == "" {
		return nil
	}
	var other model.Book
	err := tx.Where("isbn = ? AND id <> ?", isbn, exceptID).First(&other).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return apperr.Conflict(fmt.Sprintf("isbn %s already belongs to book %d", isbn, other.ID))
}
