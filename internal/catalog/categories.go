package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go_library/internal/apperr"
	"go_library/internal/model"
	"go_library/internal/session"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CategoryInput is the payload for creating or replacing a category
type CategoryInput struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description" binding:"max=512"`
}

// CategoryItem is a category with the number of books in it
type CategoryItem struct {
	model.Category
	BookCount int64 `json:"bookCount"`
}

// CreateCategory adds a category with a unique name
func (s *Service) CreateCategory(ctx context.Context, actor session.Principal, in CategoryInput) (*model.Category, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	category := model.Category{Name: name, Description: in.Description}
	category.Touch(s.now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUniqueCategoryName(tx, name, 0); err != nil {
			return err
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, apperr.FromDB("failed to create category", err)
	}
	return &category, nil
}

// UpdateCategory replaces a category's name and description
func (s *Service) UpdateCategory(ctx context.Context, actor session.Principal, id int, in CategoryInput) (*model.Category, error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	var category model.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("category %d not found", id), err)
		}
		if err := requireUniqueCategoryName(tx, name, id); err != nil {
			return err
		}
		return tx.Model(&category).Updates(map[string]interface{}{
			"name":        name,
			"description": in.Description,
			"updated_at":  s.now(),
		}).Error
	})
	if err != nil {
		return nil, apperr.FromDB("failed to update category", err)
	}
	return &category, nil
}

// DeleteCategory removes a category that no live book references
func (s *Service) DeleteCategory(ctx context.Context, actor session.Principal, id int) error {
	if err := session.Require(actor, session.Staff...); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category model.Category
		if err := tx.First(&category, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("category %d not found", id), err)
		}

		var books int64
		if err := tx.Model(&model.Book{}).Where("category_id = ?", id).Count(&books).Error; err != nil {
			return err
		}
		if books > 0 {
			return apperr.CategoryInUse(fmt.Sprintf("category %q is used by %d books", category.Name, books))
		}

		// Deleted books kept for loan history let go of the category
		if err := tx.Unscoped().Model(&model.Book{}).
			Where("category_id = ? AND deleted_at IS NOT NULL", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		return apperr.FromDB("failed to delete category", err)
	}

	s.logger.WithFields(logrus.Fields{"category_id": id, "actor": actor.ID}).Info("Category deleted")
	return nil
}

// GetCategory returns a category
func (s *Service) GetCategory(ctx context.Context, id int) (*model.Category, error) {
	var category model.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, apperr.FromDB(fmt.Sprintf("category %d not found", id), err)
	}
	return &category, nil
}

// ListCategories returns one page of categories with their book counts
func (s *Service) ListCategories(ctx context.Context, q string, page model.Page) (model.PageResult[CategoryItem], error) {
	page = page.Normalize()
	query := s.db.WithContext(ctx).Model(&model.Category{})
	if q = strings.TrimSpace(q); q != "" {
		query = query.Where("name LIKE ?", "%"+q+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return model.PageResult[CategoryItem]{}, apperr.FromDB("failed to count categories", err)
	}

	var categories []model.Category
	if err := query.Offset(page.Offset()).Limit(page.Size).Order("name ASC").Find(&categories).Error; err != nil {
		return model.PageResult[CategoryItem]{}, apperr.FromDB("failed to fetch categories", err)
	}

	ids := make([]int, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	counts := map[int]int64{}
	if len(ids) > 0 {
		var rows []struct {
			CategoryID int
			Count      int64
		}
		if err := s.db.WithContext(ctx).Model(&model.Book{}).
			Select("category_id, COUNT(*) AS count").
			Where("category_id IN ?", ids).
			Group("category_id").
			Scan(&rows).Error; err != nil {
			return model.PageResult[CategoryItem]{}, apperr.FromDB("failed to count books per category", err)
		}
		for _, r := range rows {
			counts[r.CategoryID] = r.Count
		}
	}

	items := make([]CategoryItem, len(categories))
	for i, c := range categories {
		items[i] = CategoryItem{Category: c, BookCount: counts[c.ID]}
	}
	return model.NewPageResult(items, total, page), nil
}

func requireUniqueCategoryName(tx *gorm.DB, name string, exceptID int) error {
	var other model.Category
	err := tx.Where("name = ? AND id <> ?", name, exceptID).First(&other).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return apperr.Conflict(fmt.Sprintf("category %q already exists", name))
}
