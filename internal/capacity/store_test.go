package capacity

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"slotbooking/backend/internal/database"
	"slotbooking/backend/internal/models"
)

var storeSeq atomic.Int64

func newStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(database.Dialector(fmt.Sprintf("sqlite://file:capacity%d?mode=memory&cache=shared", storeSeq.Add(1))))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestHasOverlapAgainstStore(t *testing.T) {
	ctx := context.Background()
	db := newStoreDB(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	chess := models.Game{Title: "Chess"}
	golf := models.Game{Title: "Golf"}
	db.Create(&chess)
	db.Create(&golf)
	slot := models.Slot{GameID: chess.ID, StartTime: base, EndTime: base.Add(time.Hour), Capacity: 2}
	db.Create(&slot)

	overlapping := Interval{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}
	adjacent := Interval{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}

	if ok, err := HasOverlap(ctx, db, chess.ID, overlapping, nil); err != nil || !ok {
		t.Fatalf("expected overlap, got %v (err %v)", ok, err)
	}
	if ok, _ := HasOverlap(ctx, db, chess.ID, adjacent, nil); ok {
		t.Fatal("adjacent slots must not overlap")
	}
	if ok, _ := HasOverlap(ctx, db, golf.ID, overlapping, nil); ok {
		t.Fatal("slots of other games must be ignored")
	}
	if ok, _ := HasOverlap(ctx, db, chess.ID, overlapping, &slot.ID); ok {
		t.Fatal("excluded slot must be ignored")
	}
}

func TestCountBookingsAndFreePlaces(t *testing.T) {
	ctx := context.Background()
	db := newStoreDB(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	game := models.Game{Title: "Chess"}
	db.Create(&game)
	full := models.Slot{GameID: game.ID, StartTime: base, EndTime: base.Add(time.Hour), Capacity: 1}
	open := models.Slot{GameID: game.ID, StartTime: base.Add(time.Hour), EndTime: base.Add(2 * time.Hour), Capacity: 1}
	db.Create(&full)
	db.Create(&open)
	db.Create(&models.Booking{UserID: 1, SlotID: full.ID, Status: models.BookingCancelled})

	n, err := CountBookings(ctx, db, full.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountBookings = %d, %v", n, err)
	}

	var free []models.Slot
	if err := db.Model(&models.Slot{}).Scopes(WithFreePlaces).Find(&free).Error; err != nil {
		t.Fatalf("query free slots: %v", err)
	}
	if len(free) != 1 || free[0].ID != open.ID {
		t.Fatalf("expected only the open slot, got %+v", free)
	}
}

func TestOverlappingListsClashes(t *testing.T) {
	ctx := context.Background()
	db := newStoreDB(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	chess := models.Game{Title: "Chess"}
	db.Create(&chess)
	first := models.Slot{GameID: chess.ID, StartTime: base, EndTime: base.Add(time.Hour), Capacity: 2}
	second := models.Slot{GameID: chess.ID, StartTime: base.Add(time.Hour), EndTime: base.Add(2 * time.Hour), Capacity: 2}
	later := models.Slot{GameID: chess.ID, StartTime: base.Add(5 * time.Hour), EndTime: base.Add(6 * time.Hour), Capacity: 2}
	db.Create(&first)
	db.Create(&second)
	db.Create(&later)

	candidate := Interval{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}
	got, err := Overlapping(ctx, db, chess.ID, candidate, nil)
	if err != nil {
		t.Fatalf("Overlapping: %v", err)
	}
	if len(got) != 2 || !got[0].Start.Equal(base) || !got[1].Start.Equal(base.Add(time.Hour)) {
		t.Fatalf("expected the first two slots, got %v", got)
	}

	got, _ = Overlapping(ctx, db, chess.ID, candidate, &first.ID)
	if len(got) != 1 || !got[0].Start.Equal(base.Add(time.Hour)) {
		t.Fatalf("excluded slot must be skipped, got %v", got)
	}

	got, _ = Overlapping(ctx, db, chess.ID, Interval{Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour)}, nil)
	if len(got) != 0 {
		t.Fatalf("adjacent window must not clash, got %v", got)
	}
}
