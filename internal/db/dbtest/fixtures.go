package dbtest

import (
	"testing"
	"time"

	"go_library/internal/auth"
	"go_library/internal/model"

	"gorm.io/gorm"
)

// Password is the plain password of every fixture user
const Password = "secret123"

// Epoch is a fixed "now" for deterministic tests
var Epoch = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// Clock returns a clock pinned at *now, so tests can move time by assigning to it
func Clock(now *time.Time) model.Clock {
	return func() time.Time { return *now }
}

// CreateUser inserts an active user with Password
func CreateUser(t testing.TB, gormDB *gorm.DB, username string, role model.Role) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(Password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &model.User{Username: username, PasswordHash: hash, Role: role, Active: true}
	u.Touch(Epoch)
	if err := gormDB.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateCategory inserts a category
func CreateCategory(t testing.TB, gormDB *gorm.DB, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name}
	c.Touch(Epoch)
	if err := gormDB.Create(c).Error; err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

// CreateBook inserts a book with every copy available
func CreateBook(t testing.TB, gormDB *gorm.DB, categoryID int, title string, copies int) *model.Book {
	t.Helper()
	b := &model.Book{Title: title, Author: "Anon", CategoryID: &categoryID, TotalCopies: copies, AvailableCopies: copies}
	b.Touch(Epoch)
	if err := gormDB.Create(b).Error; err != nil {
		t.Fatalf("create book %s: %v", title, err)
	}
	return b
}

// ReloadBook reads a book back from the database
func ReloadBook(t testing.TB, gormDB *gorm.DB, id int) *model.Book {
	t.Helper()
	var b model.Book
	if err := gormDB.Unscoped().First(&b, id).Error; err != nil {
		t.Fatalf("reload book %d: %v", id, err)
	}
	return &b
}

// AssertLoanInvariant checks that every book's on-loan count matches its borrowed rows
func AssertLoanInvariant(t testing.TB, gormDB *gorm.DB) {
	t.Helper()
	var books []model.Book
	if err := gormDB.Unscoped().Find(&books).Error; err != nil {
		t.Fatalf("list books: %v", err)
	}
	for _, b := range books {
		if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
			t.Errorf("book %d: available %d outside [0, %d]", b.ID, b.AvailableCopies, b.TotalCopies)
		}
		var borrowed int64
		gormDB.Model(&model.Borrow{}).
			Where("book_id = ? AND status = ?", b.ID, model.BorrowStatusBorrowed).
			Count(&borrowed)
		if int64(b.OnLoan()) != borrowed {
			t.Errorf("book %d: on loan %d but %d borrowed rows", b.ID, b.OnLoan(), borrowed)
		}
	}
}

// CreateBorrow inserts a borrow in the given status. A borrowed row also takes a copy off the book.
func CreateBorrow(t testing.TB, gormDB *gorm.DB, userID, bookID int, status model.BorrowStatus, borrowDate, dueDate time.Time) *model.Borrow {
	t.Helper()
	b := &model.Borrow{UserID: userID, BookID: bookID, Status: status, BorrowDate: borrowDate, DueDate: dueDate}
	b.Touch(borrowDate)
	err := gormDB.Transaction(func(tx *gorm.DB) error {
		if status == model.BorrowStatusBorrowed {
			res := tx.Model(&model.Book{}).
				Where("id = ? AND available_copies > 0", bookID).
				Update("available_copies", gorm.Expr("available_copies - 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.Create(b).Error
	})
	if err != nil {
		t.Fatalf("create borrow: %v", err)
	}
	return b
}

// CreateFee inserts a fee against a borrow
func CreateFee(t testing.TB, gormDB *gorm.DB, borrow *model.Borrow, feeType model.FeeType, amount int64, status model.FeeStatus) *model.Fee {
	t.Helper()
	f := &model.Fee{BorrowID: borrow.ID, UserID: borrow.UserID, Type: feeType, Amount: amount, Status: status}
	f.Touch(Epoch)
	if status == model.FeeStatusPaid {
		paidAt := Epoch
		f.PaidAt = &paidAt
		f.PaymentMethod = model.StrPtr("cash")
	}
	if err := gormDB.Create(f).Error; err != nil {
		t.Fatalf("create fee: %v", err)
	}
	return f
}
