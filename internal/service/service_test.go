package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/database"
	"slotbooking/backend/internal/models"
)

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := fmt.Sprintf("sqlite://file:servicetest%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := database.New(database.Dialector(url))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "hashed:"+p {
		return errors.New("mismatch")
	}
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []BookingEvent
}

func (r *recorder) Publish(_ context.Context, e BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

var testBase = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	ctx    context.Context
	events *recorder

	admin authz.Actor
	alice authz.Actor
	bob   authz.Actor
	dept  models.Department
	chess models.Game

	bookings *BookingService
	slots    *SlotService
	games    *GameService
	depts    *DepartmentService
	users    *UserService
	auth     *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	az := authz.New()
	f := &fixture{db: db, ctx: context.Background(), events: &recorder{}}

	f.dept = models.Department{Title: "General"}
	mustCreate(t, db, &f.dept)
	f.admin = f.user(t, "admin", models.RoleAdmin)
	f.alice = f.user(t, "alice", models.RoleNormal)
	f.bob = f.user(t, "bob", models.RoleNormal)
	f.chess = models.Game{Title: "Chess"}
	mustCreate(t, db, &f.chess)

	f.bookings = NewBookingService(db, az, f.events)
	f.slots = NewSlotService(db, az)
	f.games = NewGameService(db, az)
	f.depts = NewDepartmentService(db, az)
	f.users = NewUserService(db, az, plainHasher{})
	f.auth = NewAuthService(db, plainHasher{}, fakeTokens{})
	return f
}

func (f *fixture) user(t *testing.T, name string, role models.Role) authz.Actor {
	t.Helper()
	email := name + "@example.com"
	username := name
	u := models.User{Email: &email, Username: &username, PasswordHash: "hashed:secret1", Role: role, DepartmentID: f.dept.ID}
	mustCreate(t, f.db, &u)
	return authz.Actor{ID: u.ID, Role: role}
}

func (f *fixture) slot(t *testing.T, start time.Time, capacity int) models.Slot {
	t.Helper()
	s := models.Slot{GameID: f.chess.ID, StartTime: start, EndTime: start.Add(time.Hour), Capacity: capacity}
	mustCreate(t, f.db, &s)
	return s
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("failed to create %T: %v", v, err)
	}
}

func expectKind(t *testing.T, err, kind error, msgPart string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
	if msgPart != "" && !strings.Contains(err.Error(), msgPart) {
		t.Fatalf("expected message containing %q, got %q", msgPart, err.Error())
	}
}

func TestNewPagination(t *testing.T) {
	p, err := NewPagination(0, 0)
	if err != nil || p.Limit != DefaultLimit {
		t.Fatalf("default limit not applied: %+v %v", p, err)
	}
	if _, err := NewPagination(-1, 10); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("negative skip must fail, got %v", err)
	}
	if _, err := NewPagination(0, MaxLimit+1); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("limit above max must fail, got %v", err)
	}
	if _, err := NewPagination(0, -5); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("negative limit must fail, got %v", err)
	}
	if p, err := NewPagination(5, MaxLimit); err != nil || p.Skip != 5 || p.Limit != MaxLimit {
		t.Fatalf("valid pagination rejected: %+v %v", p, err)
	}
}

func TestPaginateOrdersByIDAndCounts(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.slot(t, testBase.Add(time.Duration(i)*2*time.Hour), 2)
	}

	page, err := f.slots.GetSlots(f.ctx, f.alice, Pagination{Skip: 1, Limit: 2})
	if err != nil {
		t.Fatalf("GetSlots: %v", err)
	}
	if page.Total != 5 || len(page.Items) != 2 {
		t.Fatalf("unexpected page: total=%d items=%d", page.Total, len(page.Items))
	}
	if page.Items[0].ID >= page.Items[1].ID {
		t.Fatalf("items not ordered by id: %d, %d", page.Items[0].ID, page.Items[1].ID)
	}
	if page.Items[0].Game == nil || page.Items[0].Game.Title != "Chess" {
		t.Fatalf("game association not resolved")
	}
}

type fakeTokens struct{}

func (fakeTokens) IssueToken(u models.User) (string, error) {
	return fmt.Sprintf("token-%d-%s", u.ID, u.Role), nil
}

func (fakeTokens) TTL() time.Duration { return 30 * time.Minute }
