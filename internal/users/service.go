// Package users manages library accounts.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go_library/internal/apperr"
	"go_library/internal/auth"
	"go_library/internal/model"
	"go_library/internal/session"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service implements the user directory
type Service struct {
	db     *gorm.DB
	now    model.Clock
	logger *logrus.Entry
}

// NewService creates a user directory service
func NewService(db *gorm.DB, clock model.Clock, logger *logrus.Entry) *Service {
	if clock == nil {
		clock = model.Now
	}
	return &Service{db: db, now: clock, logger: logger.WithField("component", "users")}
}

// RegisterInput is the public sign-up payload
type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName" binding:"max=128"`
	Email    string `json:"email" binding:"omitempty,email,max=128"`
}

// CreateInput is the admin payload for a new account of any role
type CreateInput struct {
	RegisterInput
	Role   model.Role `json:"role" binding:"required,role"`
	Active *bool      `json:"active"`
}

// UpdateInput changes an account. Nil fields are left alone.
type UpdateInput struct {
	FullName *string     `json:"fullName" binding:"omitempty,max=128"`
	Email    *string     `json:"email" binding:"omitempty,email,max=128"`
	Password *string     `json:"password"`
	Role     *model.Role `json:"role" binding:"omitempty,role"`
	Active   *bool       `json:"active"`
}

// Filter narrows List
type Filter struct {
	Q      string `form:"q"`
	Role   string `form:"role"`
	Active *bool  `form:"active"`
}

// Register creates an active member account
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	return s.create(ctx, in, model.RoleUser, true, 0)
}

// Create adds an account with any role
func (s *Service) Create(ctx context.Context, actor session.Principal, in CreateInput) (*model.User, error) {
	if err := session.Require(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid role %q", in.Role))
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return s.create(ctx, in.RegisterInput, in.Role, active, actor.ID)
}

// CreateAdmin adds an active admin without an acting principal. It backs the create-admin command.
func (s *Service) CreateAdmin(ctx context.Context, in RegisterInput) (*model.User, error) {
	return s.create(ctx, in, model.RoleAdmin, true, 0)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role model.Role, active bool, actorID int) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, apperr.Validation("username is required")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := model.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.TrimSpace(in.Email),
		Role:         role,
		Active:       active,
	}
	user.Touch(s.now())

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.User
		err := tx.Where("username = ?", username).First(&existing).Error
		if err == nil {
			return apperr.Conflict(fmt.Sprintf("username %s is taken", username))
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, apperr.FromDB("failed to create user", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": role, "actor": actorID}).Info("User created")
	return &user, nil
}

// Update changes an account. An admin cannot demote or deactivate themselves.
func (s *Service) Update(ctx context.Context, actor session.Principal, id int, in UpdateInput) (*model.User, error) {
	if err := session.Require(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if actor.ID == id {
		if in.Role != nil && *in.Role != model.RoleAdmin {
			return nil, apperr.InvalidState("admins cannot change their own role")
		}
		if in.Active != nil && !*in.Active {
			return nil, apperr.InvalidState("admins cannot deactivate themselves")
		}
	}

	updates := map[string]interface{}{}
	if in.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*in.FullName)
	}
	if in.Email != nil {
		updates["email"] = strings.TrimSpace(*in.Email)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("invalid role %q", *in.Role))
		}
		updates["role"] = *in.Role
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}
	if in.Password != nil {
		if err := auth.ValidatePassword(*in.Password); err != nil {
			return nil, apperr.Validation(err.Error())
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Internal("failed to hash password", err)
		}
		updates["password_hash"] = hash
	}

	var user model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("user %d not found", id), err)
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = s.now()
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, id).Error
	})
	if err != nil {
		return nil, apperr.FromDB("failed to update user", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": id, "actor": actor.ID}).Info("User updated")
	return &user, nil
}

// Delete removes an account that has never borrowed
func (s *Service) Delete(ctx context.Context, actor session.Principal, id int) error {
	if err := session.Require(actor, model.RoleAdmin); err != nil {
		return err
	}
	if actor.ID == id {
		return apperr.InvalidState("admins cannot delete themselves")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, id).Error; err != nil {
			return apperr.FromDB(fmt.Sprintf("user %d not found", id), err)
		}
		var borrows int64
		if err := tx.Model(&model.Borrow{}).Where("user_id = ?", id).Count(&borrows).Error; err != nil {
			return err
		}
		if borrows > 0 {
			return apperr.InvalidState(fmt.Sprintf("user %s has %d borrows, deactivate instead", user.Username, borrows))
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return apperr.FromDB("failed to delete user", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": id, "actor": actor.ID}).Info("User deleted")
	return nil
}

// Get returns an account visible to actor
func (s *Service) Get(ctx context.Context, actor session.Principal, id int) (*model.User, error) {
	if err := session.RequireSelfOrStaff(actor, id); err != nil {
		return nil, err
	}
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, apperr.FromDB(fmt.Sprintf("user %d not found", id), err)
	}
	return &user, nil
}

// List returns one page of accounts for staff
func (s *Service) List(ctx context.Context, actor session.Principal, f Filter, page model.Page) (model.PageResult[model.User], error) {
	if err := session.Require(actor, session.Staff...); err != nil {
		return model.PageResult[model.User]{}, err
	}
	page = page.Normalize()
	query := s.db.WithContext(ctx).Model(&model.User{})

	if q := strings.TrimSpace(f.Q); q != "" {
		like := "%" + q + "%"
		query = query.Where("(username LIKE ? OR full_name LIKE ? OR email LIKE ?)", like, like, like)
	}
	if f.Role != "" {
		role, err := model.ParseRole(f.Role)
		if err != nil {
			return model.PageResult[model.User]{}, apperr.Validation(err.Error())
		}
		query = query.Where("role = ?", role)
	}
	if f.Active != nil {
		query = query.Where("active = ?", *f.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return model.PageResult[model.User]{}, apperr.FromDB("failed to count users", err)
	}
	var list []model.User
	if err := query.Offset(page.Offset()).Limit(page.Size).Order("id ASC").Find(&list).Error; err != nil {
		return model.PageResult[model.User]{}, apperr.FromDB("failed to fetch users", err)
	}
	return model.NewPageResult(list, total, page), nil
}
