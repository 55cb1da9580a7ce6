package catalog

import (
	"context"
	"testing"

	"go_library/internal/apperr"
	"go_library/internal/db/dbtest"
	"go_library/internal/model"
	"go_library/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	staff  = session.Principal{ID: 100, Username: "desk", Role: model.RoleStaff}
	member = session.Principal{ID: 200, Username: "reader", Role: model.RoleUser}
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	gormDB := dbtest.Open(t)
	now := dbtest.Epoch
	return NewService(gormDB, dbtest.Clock(&now), nil, dbtest.Logger()), gormDB
}

// lend puts a borrowed row against the book the way circulation does
func lend(t *testing.T, gormDB *gorm.DB, bookID int) {
	t.Helper()
	var borrower model.User
	if err := gormDB.Where("username = ?", "borrower").First(&borrower).Error; err != nil {
		borrower = *dbtest.CreateUser(t, gormDB, "borrower", model.RoleUser)
	}
	require.NoError(t, gormDB.Transaction(func(tx *gorm.DB) error {
		if err := Checkout(tx, bookID, dbtest.Epoch); err != nil {
			return err
		}
		b := model.Borrow{UserID: borrower.ID, BookID: bookID, Status: model.BorrowStatusBorrowed, BorrowDate: dbtest.Epoch, DueDate: dbtest.Epoch.AddDate(0, 0, 14)}
		b.Touch(dbtest.Epoch)
		return tx.Create(&b).Error
	}))
}

func TestCreateBook(t *testing.T) {
	svc, gormDB := newService(t)
	cat := dbtest.CreateCategory(t, gormDB, "Fiction")
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, staff, BookInput{Title: " Dune ", Author: "Herbert", ISBN: "978-0441013593", TotalCopies: 3, CategoryID: cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, 3, book.AvailableCopies)
	require.NotNil(t, book.Category)
	assert.Equal(t, "Fiction", book.Category.Name)

	_, err = svc.CreateBook(ctx, staff, BookInput{Title: "Dune again", ISBN: "978-0441013593", CategoryID: cat.ID})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	_, err = svc.CreateBook(ctx, staff, BookInput{Title: "Orphan", CategoryID: 999})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = svc.CreateBook(ctx, member, BookInput{Title: "Sneaky", CategoryID: cat.ID})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestUpdateBook_MetadataOnly(t *testing.T) {
	svc, gormDB := newService(t)
	cat := dbtest.CreateCategory(t, gormDB, "Fiction")
	other := dbtest.CreateCategory(t, gormDB, "Classics")
	book := dbtest.CreateBook(t, gormDB, cat.ID, "Emma", 2)

	title := "Emma (annotated)"
	updated, err := svc.UpdateBook(context.Background(), staff, book.ID, BookPatch{Title: &title, CategoryID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	require.NotNil(t, updated.CategoryID)
	assert.Equal(t, other.ID, *updated.CategoryID)
	assert.Equal(t, 2, updated.TotalCopies)
}

func TestAdjustQuantity_AvailableAboveTotal(t *testing.T) {
	svc, gormDB := newService(t)
	cat := dbtest.CreateCategory(t, gormDB, "Fiction")
	book := dbtest.CreateBook(t, gormDB, cat.ID, "Emma", 2)

	_, err := svc.AdjustQuantity(context.Background(), staff, book.ID, 2, 3)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidQuantity))

	reloaded := dbtest.ReloadBook(t, gormDB, book.ID)
	assert.Equal(t, 2, reloaded.TotalCopies)
	assert.Equal(t, 2, reloaded.AvailableCopies)
}

func TestAdjustQuantity_RespectsLoans(t *testing.T) {
	svc, gormDB := newService(t)
	cat := dbtest.CreateCategory(t, gormDB, "Fiction")
	book := dbtest.CreateBook(t, gormDB, cat.ID, "Emma", 3)
	lend(t, gormDB, book.ID)
	lend(t, gormDB, book.ID)
	ctx := context.Background()

	_, err := svc.AdjustQuantity(ctx, staff, book.ID, 1, 0)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidQuantity), "total below copies on loan")

	_, err = svc.AdjustQuantity(ctx, staff, book.ID, 5, 5)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidQuantity), "available must account for loans")

	adjusted, err := svc.AdjustQuantity(ctx, staff, book.ID, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, adjusted.TotalCopies)
	assert.Equal(t, 3, adjusted.AvailableCopies)

	adjusted, err = svc.AdjustQuantity(ctx, staff, book.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, adjusted.AvailableCopies)

	dbtest.AssertLoanInvariant(t, gormDB)
}

func TestDeleteBook_RejectsOpenLoans(t *testing.T) {
	svc, gormDB := newService(t)
	cat := dbtest.CreateCategory(t, gormDB, "Fiction")
	book := dbtest.CreateBook(t, gormDB, cat.ID, "Emma", 1)
	lend(t, gormDB, book.ID)
	ctx := context.Background()

	err := svc.DeleteBook(ctx, staff, book.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	require.NoError(t, gormDB.Model(&model.Borrow{}).Where("book_id = ?", book.ID).Update("status", model.BorrowStatusReturned).Error)
	require.NoError(t, Checkin(gormDB, book.ID, dbtest.Epoch))

	require.NoError(t, svc.DeleteBook(ctx, staff, book.ID))
	_, err = svc.GetBook(ctx, book.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// the returned loan still resolves its book
	assert.Equal(t, "Emma", dbtest.ReloadBook(t, gormDB, book.ID).Title)
}

func TestDeleteCategory_FreedByBookWithHistory(t *testing.T) {
	svc, gormDB := newService(t)
	cat := dbtest.CreateCategory(t, gormDB, "Fiction")
	book := dbtest.CreateBook(t, gormDB, cat.ID, "Emma", 1)
	lend(t, gormDB, book.ID)
	ctx := context.Background()

	require.NoError(t, gormDB.Model(&model.Borrow{}).Where("book_id = ?", book.ID).Update("status", model.BorrowStatusReturned).Error)
	require.NoError(t, Checkin(gormDB, book.ID, dbtest.Epoch))
	require.NoError(t, svc.DeleteBook(ctx, staff, book.ID))

	list, err := svc.ListCategories(ctx, "", model.Page{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Zero(t, list.Data[0].BookCount)

	require.NoError(t, svc.DeleteCategory(ctx, staff, cat.ID))
	_, err = svc.GetCategory(ctx, cat.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	kept := dbtest.ReloadBook(t, gormDB, book.ID)
	assert.Equal(t, "Emma", kept.Title)
	assert.Nil(t, kept.CategoryID)

	var history int64
	require.NoError(t, gormDB.Model(&model.Borrow{}).Where("book_id = ?", book.ID).Count(&history).Error)
	assert.Equal(t, int64(1), history)

	// the name is free again
	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "Fiction"})
	assert.NoError(t, err)
}

func TestDeleteCategory_InUseUntilBookGone(t *testing.T) {
	svc, gormDB := newService(t)
	cat := dbtest.CreateCategory(t, gormDB, "Fiction")
	book := dbtest.CreateBook(t, gormDB, cat.ID, "Emma", 1)
	ctx := context.Background()

	err := svc.DeleteCategory(ctx, staff, cat.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindCategoryInUse))

	require.NoError(t, svc.DeleteBook(ctx, staff, book.ID))
	require.NoError(t, svc.DeleteCategory(ctx, staff, cat.ID))

	_, err = svc.GetCategory(ctx, cat.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCategoryCRUD(t *testing.T) {
	svc, gormDB := newService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "Poetry"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "Poetry"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	updated, err := svc.UpdateCategory(ctx, staff, cat.ID, CategoryInput{Name: "Verse", Description: "rhymes"})
	require.NoError(t, err)
	assert.Equal(t, "Verse", updated.Name)

	dbtest.CreateBook(t, gormDB, cat.ID, "Odes", 1)
	dbtest.CreateBook(t, gormDB, cat.ID, "Sonnets", 1)

	list, err := svc.ListCategories(ctx, "", model.Page{})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(2), list.Data[0].BookCount)
}

func TestListBooks_Filters(t *testing.T) {
	svc, gormDB := newService(t)
	fiction := dbtest.CreateCategory(t, gormDB, "Fiction")
	science := dbtest.CreateCategory(t, gormDB, "Science")
	dbtest.CreateBook(t, gormDB, fiction.ID, "Dune", 1)
	dbtest.CreateBook(t, gormDB, fiction.ID, "Emma", 0)
	dbtest.CreateBook(t, gormDB, science.ID, "Cosmos", 2)
	ctx := context.Background()

	all, err := svc.ListBooks(ctx, BookFilter{}, model.Page{Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalRecords)
	assert.Len(t, all.Data, 2)
	assert.Equal(t, 2, all.TotalPages)

	avail, err := svc.ListBooks(ctx, BookFilter{AvailableOnly: true}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), avail.TotalRecords)

	byCat, err := svc.ListBooks(ctx, BookFilter{CategoryID: science.ID}, model.Page{})
	require.NoError(t, err)
	require.Len(t, byCat.Data, 1)
	assert.Equal(t, "Cosmos", byCat.Data[0].Title)

	search, err := svc.ListBooks(ctx, BookFilter{Q: "mm"}, model.Page{})
	require.NoError(t, err)
	require.Len(t, search.Data, 1)
	assert.Equal(t, "Emma", search.Data[0].Title)
}

func TestCheckoutCheckin_Guards(t *testing.T) {
	_, gormDB := newService(t)
	cat := dbtest.CreateCategory(t, gormDB, "Fiction")
	book := dbtest.CreateBook(t, gormDB, cat.ID, "Emma", 1)

	require.NoError(t, Checkout(gormDB, book.ID, dbtest.Epoch))
	err := Checkout(gormDB, book.ID, dbtest.Epoch)
	assert.True(t, apperr.IsKind(err, apperr.KindNoCopiesAvailable))

	err = Checkout(gormDB, 999, dbtest.Epoch)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	require.NoError(t, Checkin(gormDB, book.ID, dbtest.Epoch))
	err = Checkin(gormDB, book.ID, dbtest.Epoch)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal), "checkin must never exceed total copies")
}
