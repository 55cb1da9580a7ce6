package ledger

import (
	"context"
	"sync"
	"testing"

	"go_library/internal/apperr"
	"go_library/internal/db/dbtest"
	"go_library/internal/events"
	"go_library/internal/model"
	"go_library/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []model.LibraryEvent
}

func (r *recorder) Broadcast(e model.LibraryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	bus    *recorder
	staff  session.Principal
	owner  session.Principal
	other  session.Principal
	borrow *model.Borrow
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gormDB := dbtest.Open(t)
	now := dbtest.Epoch
	bus := &recorder{}

	desk := dbtest.CreateUser(t, gormDB, "desk", model.RoleStaff)
	alice := dbtest.CreateUser(t, gormDB, "alice", model.RoleUser)
	bob := dbtest.CreateUser(t, gormDB, "bob", model.RoleUser)
	cat := dbtest.CreateCategory(t, gormDB, "Fiction")
	book := dbtest.CreateBook(t, gormDB, cat.ID, "Dune", 2)
	borrow := dbtest.CreateBorrow(t, gormDB, alice.ID, book.ID, model.BorrowStatusBorrowed, now, now.AddDate(0, 0, 14))

	return &fixture{
		svc:    NewService(gormDB, dbtest.Clock(&now), bus, dbtest.Logger()),
		db:     gormDB,
		bus:    bus,
		staff:  session.Principal{ID: desk.ID, Username: desk.Username, Role: model.RoleStaff},
		owner:  session.Principal{ID: alice.ID, Username: alice.Username, Role: model.RoleUser},
		other:  session.Principal{ID: bob.ID, Username: bob.Username, Role: model.RoleUser},
		borrow: borrow,
	}
}

func TestCreateFee(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	fee, err := f.svc.CreateFee(ctx, f.staff, FeeInput{BorrowID: f.borrow.ID, Type: model.FeeTypeDamage, Amount: 20000, Notes: "torn cover"})
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, fee.UserID, "user defaults to the borrower")
	assert.Equal(t, model.FeeStatusUnpaid, fee.Status)
	assert.Nil(t, fee.PaidAt)
	assert.Nil(t, fee.PaymentMethod)
	assert.Equal(t, []string{events.FeeCreated}, f.bus.types())

	hinted, err := f.svc.CreateFee(ctx, f.staff, FeeInput{BorrowID: f.borrow.ID, Type: model.FeeTypeLost, Amount: 90000, PaymentMethod: " card "})
	require.NoError(t, err)
	assert.Equal(t, model.FeeStatusUnpaid, hinted.Status)
	assert.Equal(t, "card", model.StrVal(hinted.PaymentMethod))
}

func TestCreateFee_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor session.Principal
		in    FeeInput
		kind  apperr.Kind
	}{
		{"zero amount", f.staff, FeeInput{BorrowID: f.borrow.ID, Type: model.FeeTypeOther, Amount: 0}, apperr.KindValidation},
		{"negative amount", f.staff, FeeInput{BorrowID: f.borrow.ID, Type: model.FeeTypeOther, Amount: -5}, apperr.KindValidation},
		{"unknown type", f.staff, FeeInput{BorrowID: f.borrow.ID, Type: "fine", Amount: 10}, apperr.KindValidation},
		{"unknown borrow", f.staff, FeeInput{BorrowID: 999, Type: model.FeeTypeOther, Amount: 10}, apperr.KindNotFound},
		{"user mismatch", f.staff, FeeInput{BorrowID: f.borrow.ID, UserID: f.other.ID, Type: model.FeeTypeOther, Amount: 10}, apperr.KindValidation},
		{"member", f.owner, FeeInput{BorrowID: f.borrow.ID, Type: model.FeeTypeOther, Amount: 10}, apperr.KindForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateFee(ctx, tc.actor, tc.in)
			assert.True(t, apperr.IsKind(err, tc.kind), "got %v", err)
		})
	}

	var count int64
	f.db.Model(&model.Fee{}).Count(&count)
	assert.Zero(t, count)
}

func TestPayFee_ExactlyOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fee := dbtest.CreateFee(t, f.db, f.borrow, model.FeeTypeLate, 15000, model.FeeStatusUnpaid)

	paid, err := f.svc.PayFee(ctx, f.owner, fee.ID, PayInput{PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Equal(t, model.FeeStatusPaid, paid.Status)
	assert.Equal(t, int64(15000), paid.Amount)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(dbtest.Epoch))
	assert.Equal(t, "card", model.StrVal(paid.PaymentMethod))

	_, err = f.svc.PayFee(ctx, f.staff, fee.ID, PayInput{PaymentMethod: "cash"})
	assert.True(t, apperr.IsKind(err, apperr.KindAlreadyPaid))

	again, err := f.svc.GetFee(ctx, f.staff, fee.ID)
	require.NoError(t, err)
	assert.Equal(t, "card", model.StrVal(again.PaymentMethod), "second payment must not overwrite the first")
	assert.True(t, again.PaidAt.Equal(*paid.PaidAt))
}

func TestPayFee_Concurrent(t *testing.T) {
	f := setup(t)
	fee := dbtest.CreateFee(t, f.db, f.borrow, model.FeeTypeLate, 5000, model.FeeStatusUnpaid)

	const n = 5
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PayFee(context.Background(), f.staff, fee.ID, PayInput{PaymentMethod: "cash"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperr.IsKind(err, apperr.KindAlreadyPaid), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestPayFee_Permissions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fee := dbtest.CreateFee(t, f.db, f.borrow, model.FeeTypeLate, 5000, model.FeeStatusUnpaid)

	_, err := f.svc.PayFee(ctx, f.other, fee.ID, PayInput{PaymentMethod: "card"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = f.svc.PayFee(ctx, f.owner, fee.ID, PayInput{PaymentMethod: "  "})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.PayFee(ctx, f.owner, 999, PayInput{PaymentMethod: "card"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListFees_Scoping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dbtest.CreateFee(t, f.db, f.borrow, model.FeeTypeLate, 5000, model.FeeStatusUnpaid)
	dbtest.CreateFee(t, f.db, f.borrow, model.FeeTypeDamage, 7000, model.FeeStatusPaid)

	cat := dbtest.CreateCategory(t, f.db, "Other")
	book := dbtest.CreateBook(t, f.db, cat.ID, "Emma", 1)
	bobs := dbtest.CreateBorrow(t, f.db, f.other.ID, book.ID, model.BorrowStatusBorrowed, dbtest.Epoch, dbtest.Epoch.AddDate(0, 0, 7))
	bobsFee := dbtest.CreateFee(t, f.db, bobs, model.FeeTypeOther, 100, model.FeeStatusUnpaid)

	all, err := f.svc.ListFees(ctx, f.staff, FeeFilter{}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalRecords)

	unpaid, err := f.svc.ListFees(ctx, f.staff, FeeFilter{Status: "unpaid"}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), unpaid.TotalRecords)

	mine, err := f.svc.ListFees(ctx, f.owner, FeeFilter{UserID: f.other.ID}, model.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.TotalRecords, "members never see other users' fees")
	for _, fee := range mine.Data {
		assert.Equal(t, f.owner.ID, fee.UserID)
	}

	_, err = f.svc.ListFees(ctx, f.staff, FeeFilter{Type: "fine"}, model.Page{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.GetFee(ctx, f.owner, bobsFee.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestDeleteFee(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fee := dbtest.CreateFee(t, f.db, f.borrow, model.FeeTypeLate, 5000, model.FeeStatusUnpaid)

	assert.True(t, apperr.IsKind(f.svc.DeleteFee(ctx, f.owner, fee.ID), apperr.KindForbidden))
	require.NoError(t, f.svc.DeleteFee(ctx, f.staff, fee.ID))
	assert.True(t, apperr.IsKind(f.svc.DeleteFee(ctx, f.staff, fee.ID), apperr.KindNotFound))
	assert.Equal(t, []string{events.FeeDeleted}, f.bus.types())
}

func TestDeleteForBorrow(t *testing.T) {
	f := setup(t)
	dbtest.CreateFee(t, f.db, f.borrow, model.FeeTypeLate, 5000, model.FeeStatusUnpaid)
	dbtest.CreateFee(t, f.db, f.borrow, model.FeeTypeBorrow, 1000, model.FeeStatusUnpaid)

	unpaid, err := CountUnpaid(f.db, f.borrow.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unpaid)

	var batch events.Batch
	var removed int
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = DeleteForBorrow(tx, &batch, dbtest.Epoch, f.staff.ID, f.borrow.ID)
		return err
	}))
	assert.Equal(t, 2, removed)

	var logged int64
	f.db.Model(&model.LibraryEvent{}).Where("event_type = ?", events.FeeDeleted).Count(&logged)
	assert.Equal(t, int64(2), logged)
}
