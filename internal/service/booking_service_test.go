package service

import (
	"slices"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/models"
)

func TestCreateBookingDefaultsToConfirmed(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 1)

	b, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.Status != models.BookingConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", b.Status)
	}
	if b.User == nil || b.Slot == nil || b.Slot.Game == nil || b.Slot.Game.Title != "Chess" {
		t.Fatalf("associations not resolved: %+v", b)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != EventBookingCreated {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestCreateBookingRejectsFullSlot(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 1)

	if _, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID}); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	_, err := f.bookings.CreateBooking(f.ctx, f.bob, BookingCreate{UserID: f.bob.ID, SlotID: slot.ID})
	expectKind(t, err, apperr.ErrConflict, "Slot is already full")
}

func TestCreateBookingRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 5)

	if _, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID, Status: models.BookingPending}); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	_, err := f.bookings.CreateBooking(f.ctx, f.admin, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID})
	expectKind(t, err, apperr.ErrConflict, "already has a booking")
}

func TestCreateBookingAfterCancelCountsCancelledRows(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 2)

	b, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := f.bookings.CancelBooking(f.ctx, f.alice, b.ID); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	// The cancelled row does not block a new booking by the same user...
	if _, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID}); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
	// ...but it still occupies a place.
	_, err = f.bookings.CreateBooking(f.ctx, f.bob, BookingCreate{UserID: f.bob.ID, SlotID: slot.ID})
	expectKind(t, err, apperr.ErrConflict, "full")
}

func TestCreateBookingNotFoundAndForbidden(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 2)

	_, err := f.bookings.CreateBooking(f.ctx, f.admin, BookingCreate{UserID: 999, SlotID: slot.ID})
	expectKind(t, err, apperr.ErrNotFound, "User not found")

	_, err = f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: 999})
	expectKind(t, err, apperr.ErrNotFound, "Slot not found")

	_, err = f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.bob.ID, SlotID: slot.ID})
	expectKind(t, err, apperr.ErrForbidden, "")

	_, err = f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID, Status: "maybe"})
	expectKind(t, err, apperr.ErrValidation, "")
}

func TestCancelBookingTwice(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 1)
	b, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	cancelled, err := f.bookings.CancelBooking(f.ctx, f.alice, b.ID)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if cancelled.Status != models.BookingCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
	_, err = f.bookings.CancelBooking(f.ctx, f.alice, b.ID)
	expectKind(t, err, apperr.ErrConflict, "already cancelled")

	_, err = f.bookings.CancelBooking(f.ctx, f.bob, b.ID)
	expectKind(t, err, apperr.ErrForbidden, "")

	_, err = f.bookings.CancelBooking(f.ctx, f.alice, 999)
	expectKind(t, err, apperr.ErrNotFound, "")
}

func TestConfirmBooking(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 2)
	b, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID, Status: models.BookingPending})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	_, err = f.bookings.ConfirmBooking(f.ctx, f.alice, b.ID)
	expectKind(t, err, apperr.ErrForbidden, "")

	confirmed, err := f.bookings.ConfirmBooking(f.ctx, f.admin, b.ID)
	if err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if confirmed.Status != models.BookingConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", confirmed.Status)
	}
	_, err = f.bookings.ConfirmBooking(f.ctx, f.admin, b.ID)
	expectKind(t, err, apperr.ErrConflict, "already confirmed")
}

func TestConfirmBookingOnFullSlot(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 2)
	pending, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID, Status: models.BookingPending})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := f.bookings.CreateBooking(f.ctx, f.bob, BookingCreate{UserID: f.bob.ID, SlotID: slot.ID}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	_, err = f.bookings.ConfirmBooking(f.ctx, f.admin, pending.ID)
	expectKind(t, err, apperr.ErrConflict, "Slot is now full")
}

func TestUpdateBookingStatus(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 5)
	first, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := f.bookings.CancelBooking(f.ctx, f.alice, first.ID); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if _, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	pending := models.BookingPending
	_, err = f.bookings.UpdateBooking(f.ctx, f.alice, first.ID, BookingUpdate{Status: &pending})
	expectKind(t, err, apperr.ErrConflict, "already has a booking")

	unchanged, err := f.bookings.UpdateBooking(f.ctx, f.alice, first.ID, BookingUpdate{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if unchanged.Status != models.BookingCancelled {
		t.Fatalf("empty update changed status to %s", unchanged.Status)
	}

	_, err = f.bookings.UpdateBooking(f.ctx, f.bob, first.ID, BookingUpdate{Status: &pending})
	expectKind(t, err, apperr.ErrForbidden, "")
}

func TestDeleteBooking(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 2)
	b, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	expectKind(t, f.bookings.DeleteBooking(f.ctx, f.alice, b.ID), apperr.ErrForbidden, "")
	if err := f.bookings.DeleteBooking(f.ctx, f.admin, b.ID); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	expectKind(t, f.bookings.DeleteBooking(f.ctx, f.admin, b.ID), apperr.ErrNotFound, "Booking not found")
}

func TestBookingReads(t *testing.T) {
	f := newFixture(t)
	s1 := f.slot(t, testBase, 3)
	s2 := f.slot(t, testBase.Add(2*time.Hour), 3)

	a1, _ := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: s1.ID})
	f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: s2.ID, Status: models.BookingPending})
	f.bookings.CreateBooking(f.ctx, f.bob, BookingCreate{UserID: f.bob.ID, SlotID: s1.ID})

	all := Pagination{Limit: 10}
	page, err := f.bookings.GetBookingsByUser(f.ctx, f.alice, f.alice.ID, all)
	if err != nil || page.Total != 2 {
		t.Fatalf("GetBookingsByUser: total=%d err=%v", page.Total, err)
	}
	active, err := f.bookings.GetUserActiveBookings(f.ctx, f.alice, f.alice.ID, all)
	if err != nil || active.Total != 1 || active.Items[0].ID != a1.ID {
		t.Fatalf("GetUserActiveBookings: %+v err=%v", active, err)
	}
	if _, err := f.bookings.GetBookingsByUser(f.ctx, f.bob, f.alice.ID, all); err == nil {
		t.Fatal("bob must not list alice's bookings")
	}
	if _, err := f.bookings.GetBooking(f.ctx, f.bob, a1.ID); err == nil {
		t.Fatal("bob must not read alice's booking")
	}
	if got, err := f.bookings.GetBooking(f.ctx, f.alice, a1.ID); err != nil || got.ID != a1.ID {
		t.Fatalf("GetBooking: %v", err)
	}

	bySlot, err := f.bookings.GetBookingsBySlot(f.ctx, f.admin, s1.ID, all)
	if err != nil || bySlot.Total != 2 {
		t.Fatalf("GetBookingsBySlot: total=%d err=%v", bySlot.Total, err)
	}
	_, err = f.bookings.GetBookingsBySlot(f.ctx, f.alice, s1.ID, all)
	expectKind(t, err, apperr.ErrForbidden, "")

	byStatus, err := f.bookings.GetBookingsByStatus(f.ctx, f.admin, models.BookingPending, all)
	if err != nil || byStatus.Total != 1 {
		t.Fatalf("GetBookingsByStatus: total=%d err=%v", byStatus.Total, err)
	}
	everything, err := f.bookings.GetBookings(f.ctx, f.admin, Pagination{Skip: 1, Limit: 1})
	if err != nil || everything.Total != 3 || len(everything.Items) != 1 {
		t.Fatalf("GetBookings: %+v err=%v", everything, err)
	}
}

func TestResetCurrentDayBookings(t *testing.T) {
	f := newFixture(t)
	f.bookings.now = func() time.Time { return testBase.Add(3 * time.Hour) }

	res, err := f.bookings.ResetCurrentDayBookings(f.ctx, f.admin)
	if err != nil {
		t.Fatalf("reset with nothing: %v", err)
	}
	if res.DeletedCount != 0 || res.Message != "No bookings found for today" || res.Date != "2025-06-01" {
		t.Fatalf("unexpected empty reset: %+v", res)
	}

	today := f.slot(t, testBase, 5)
	late := f.slot(t, time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC), 5)
	tomorrow := f.slot(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), 5)
	for _, s := range []models.Slot{today, late, tomorrow} {
		if _, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: s.ID}); err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
	}
	if _, err := f.bookings.CreateBooking(f.ctx, f.bob, BookingCreate{UserID: f.bob.ID, SlotID: today.ID, Status: models.BookingCancelled}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	_, err = f.bookings.ResetCurrentDayBookings(f.ctx, f.alice)
	expectKind(t, err, apperr.ErrForbidden, "")

	res, err = f.bookings.ResetCurrentDayBookings(f.ctx, f.admin)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if res.DeletedCount != 3 {
		t.Fatalf("expected 3 deletions, got %+v", res)
	}

	var left []models.Booking
	f.db.Find(&left)
	if len(left) != 1 || left[0].SlotID != tomorrow.ID {
		t.Fatalf("only tomorrow's booking should remain: %+v", left)
	}
}

func TestGeneralChessScenario(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 1)

	b, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID})
	if err != nil || b.Status != models.BookingConfirmed {
		t.Fatalf("alice booking: %+v %v", b, err)
	}
	_, err = f.bookings.CreateBooking(f.ctx, f.admin, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID})
	expectKind(t, err, apperr.ErrConflict, "")

	cancelled, err := f.bookings.CancelBooking(f.ctx, f.alice, b.ID)
	if err != nil || cancelled.Status != models.BookingCancelled {
		t.Fatalf("cancel: %+v %v", cancelled, err)
	}
	// booked_count still includes the cancelled row.
	_, err = f.bookings.CreateBooking(f.ctx, f.admin, BookingCreate{UserID: f.admin.ID, SlotID: slot.ID})
	expectKind(t, err, apperr.ErrConflict, "full")
}

// postgresNamed reports itself as postgres so row locks are requested while
// statements still run on sqlite.
type postgresNamed struct{ gorm.Dialector }

func (postgresNamed) Name() string { return "postgres" }

func TestConfirmBookingLocksBookingAndSlot(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 2)
	b := models.Booking{UserID: f.alice.ID, SlotID: slot.ID, Status: models.BookingPending}
	mustCreate(t, f.db, &b)

	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	db, err := gorm.Open(postgresNamed{&sqlite.Dialector{Conn: sqlDB}}, &gorm.Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var mu sync.Mutex
	var locked []string
	err = db.Callback().Query().Before("gorm:query").Register("test:record_locks", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Clauses["FOR"]; !ok {
			return
		}
		mu.Lock()
		locked = append(locked, tx.Statement.Table)
		mu.Unlock()
		// sqlite has no row locks; drop the clause before the SQL is built.
		delete(tx.Statement.Clauses, "FOR")
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	bookings := NewBookingService(db, authz.New(), nil)
	if _, err := bookings.ConfirmBooking(f.ctx, f.admin, b.ID); err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if !slices.Contains(locked, "bookings") || !slices.Contains(locked, "slots") {
		t.Fatalf("expected booking and slot rows to be locked, got %v", locked)
	}
}

func TestWatchSlotScope(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 2)

	scope, err := f.bookings.WatchSlot(f.ctx, f.alice, slot.ID)
	if err != nil {
		t.Fatalf("WatchSlot: %v", err)
	}
	if scope.All || !scope.Covers(f.alice.ID) || scope.Covers(f.bob.ID) {
		t.Fatalf("normal users only see their own events, got %+v", scope)
	}

	scope, err = f.bookings.WatchSlot(f.ctx, f.admin, slot.ID)
	if err != nil {
		t.Fatalf("WatchSlot: %v", err)
	}
	if !scope.Covers(f.bob.ID) {
		t.Fatalf("admins see every event, got %+v", scope)
	}

	_, err = f.bookings.WatchSlot(f.ctx, f.alice, 999)
	expectKind(t, err, apperr.ErrNotFound, "Slot not found")

	_, err = f.bookings.WatchSlot(f.ctx, authz.Actor{ID: 42, Role: "guest"}, slot.ID)
	expectKind(t, err, apperr.ErrForbidden, "")
}
