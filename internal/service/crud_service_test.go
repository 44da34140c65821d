package service

import (
	"testing"
	"time"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/models"
)

func strPtr(s string) *string { return &s }

func TestGameLifecycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.games.CreateGame(f.ctx, f.admin, GameCreate{Title: "Chess"})
	expectKind(t, err, apperr.ErrConflict, "Game with this title already exists")
	_, err = f.games.CreateGame(f.ctx, f.admin, GameCreate{Title: "  "})
	expectKind(t, err, apperr.ErrValidation, "")
	_, err = f.games.CreateGame(f.ctx, f.alice, GameCreate{Title: "Go"})
	expectKind(t, err, apperr.ErrForbidden, "")

	game, err := f.games.CreateGame(f.ctx, f.admin, GameCreate{Title: "Go", Description: "Board game"})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	_, err = f.games.UpdateGame(f.ctx, f.admin, game.ID, GameUpdate{Title: strPtr("Chess")})
	expectKind(t, err, apperr.ErrConflict, "already exists")

	updated, err := f.games.UpdateGame(f.ctx, f.admin, game.ID, GameUpdate{Background: strPtr("go.png")})
	if err != nil || updated.Title != "Go" || updated.Background != "go.png" || updated.Description != "Board game" {
		t.Fatalf("partial update: %+v %v", updated, err)
	}

	slot, err := f.slots.CreateSlot(f.ctx, f.admin, SlotCreate{StartTime: testBase, EndTime: testBase.Add(time.Hour), GameID: game.ID})
	if err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	expectKind(t, f.games.DeleteGame(f.ctx, f.admin, game.ID), apperr.ErrConflict, "existing slots")
	if err := f.slots.DeleteSlot(f.ctx, f.admin, slot.ID); err != nil {
		t.Fatalf("DeleteSlot: %v", err)
	}
	if err := f.games.DeleteGame(f.ctx, f.admin, game.ID); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	_, err = f.games.GetGame(f.ctx, f.alice, game.ID)
	expectKind(t, err, apperr.ErrNotFound, "Game not found")
}

func TestDepartmentLifecycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.depts.CreateDepartment(f.ctx, f.admin, DepartmentCreate{Title: "General"})
	expectKind(t, err, apperr.ErrConflict, "Department with this title already exists")

	sales, err := f.depts.CreateDepartment(f.ctx, f.admin, DepartmentCreate{Title: "Sales"})
	if err != nil {
		t.Fatalf("CreateDepartment: %v", err)
	}
	general, err := f.depts.GetDepartment(f.ctx, f.alice, f.dept.ID)
	if err != nil || general.UserCount != 3 {
		t.Fatalf("GetDepartment: %+v %v", general, err)
	}

	page, err := f.depts.GetDepartments(f.ctx, f.alice, Pagination{Limit: 10})
	if err != nil || page.Total != 2 || page.Items[0].UserCount != 3 || page.Items[1].UserCount != 0 {
		t.Fatalf("GetDepartments: %+v %v", page, err)
	}

	renamed, err := f.depts.UpdateDepartment(f.ctx, f.admin, sales.ID, DepartmentUpdate{Title: strPtr("Marketing")})
	if err != nil || renamed.Title != "Marketing" {
		t.Fatalf("UpdateDepartment: %+v %v", renamed, err)
	}

	expectKind(t, f.depts.DeleteDepartment(f.ctx, f.admin, f.dept.ID), apperr.ErrConflict, "existing users")
	expectKind(t, f.depts.DeleteDepartment(f.ctx, f.alice, sales.ID), apperr.ErrForbidden, "")
	if err := f.depts.DeleteDepartment(f.ctx, f.admin, sales.ID); err != nil {
		t.Fatalf("DeleteDepartment: %v", err)
	}
}

func TestDepartmentDeleteAfterUsersMoved(t *testing.T) {
	f := newFixture(t)
	other, err := f.depts.CreateDepartment(f.ctx, f.admin, DepartmentCreate{Title: "Other"})
	if err != nil {
		t.Fatalf("CreateDepartment: %v", err)
	}
	u, err := f.users.CreateUser(f.ctx, f.admin, UserCreate{Username: strPtr("carol"), Password: "secret1", DepartmentID: other.ID})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	expectKind(t, f.depts.DeleteDepartment(f.ctx, f.admin, other.ID), apperr.ErrConflict, "")
	if _, err := f.users.UpdateUser(f.ctx, f.admin, u.ID, UserUpdate{DepartmentID: &f.dept.ID}); err != nil {
		t.Fatalf("move user: %v", err)
	}
	if err := f.depts.DeleteDepartment(f.ctx, f.admin, other.ID); err != nil {
		t.Fatalf("DeleteDepartment: %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.CreateUser(f.ctx, f.admin, UserCreate{Password: "secret1", DepartmentID: f.dept.ID})
	expectKind(t, err, apperr.ErrValidation, "email or username")
	_, err = f.users.CreateUser(f.ctx, f.admin, UserCreate{Email: strPtr("x@example.com"), Password: "short", DepartmentID: f.dept.ID})
	expectKind(t, err, apperr.ErrValidation, "at least 6")
	_, err = f.users.CreateUser(f.ctx, f.admin, UserCreate{Email: strPtr("alice@example.com"), Password: "secret1", DepartmentID: f.dept.ID})
	expectKind(t, err, apperr.ErrConflict, "Email already registered")
	_, err = f.users.CreateUser(f.ctx, f.admin, UserCreate{Username: strPtr("alice"), Password: "secret1", DepartmentID: f.dept.ID})
	expectKind(t, err, apperr.ErrConflict, "Username already taken")
	_, err = f.users.CreateUser(f.ctx, f.admin, UserCreate{Username: strPtr("dave"), Password: "secret1", DepartmentID: 999})
	expectKind(t, err, apperr.ErrNotFound, "Department not found")
	_, err = f.users.CreateUser(f.ctx, f.alice, UserCreate{Username: strPtr("dave"), Password: "secret1", DepartmentID: f.dept.ID})
	expectKind(t, err, apperr.ErrForbidden, "")

	u, err := f.users.CreateUser(f.ctx, f.admin, UserCreate{Username: strPtr(" dave "), Password: "secret1", DepartmentID: f.dept.ID})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Role != models.RoleNormal || u.Email != nil || *u.Username != "dave" || u.PasswordHash != "hashed:secret1" {
		t.Fatalf("unexpected user: %+v", u.User)
	}
	if u.Department == nil || u.Department.Title != "General" {
		t.Fatal("department not resolved")
	}
}

func TestUpdateUserRules(t *testing.T) {
	f := newFixture(t)

	admin := models.RoleAdmin
	_, err := f.users.UpdateUser(f.ctx, f.alice, f.alice.ID, UserUpdate{Role: &admin})
	expectKind(t, err, apperr.ErrForbidden, "Only admins")
	_, err = f.users.UpdateUser(f.ctx, f.alice, f.bob.ID, UserUpdate{Description: strPtr("hi")})
	expectKind(t, err, apperr.ErrForbidden, "")
	_, err = f.users.UpdateUser(f.ctx, f.alice, f.alice.ID, UserUpdate{Username: strPtr("bob")})
	expectKind(t, err, apperr.ErrConflict, "Username already taken")
	_, err = f.users.UpdateUser(f.ctx, f.alice, f.alice.ID, UserUpdate{Email: strPtr(""), Username: strPtr("")})
	expectKind(t, err, apperr.ErrValidation, "email or username")

	u, err := f.users.UpdateUser(f.ctx, f.alice, f.alice.ID, UserUpdate{Email: strPtr(""), Password: strPtr("newsecret"), Description: strPtr("hi")})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u.Email != nil || u.Description != "hi" || u.PasswordHash != "hashed:newsecret" {
		t.Fatalf("unexpected user: %+v", u.User)
	}

	promoted, err := f.users.UpdateUser(f.ctx, f.admin, f.bob.ID, UserUpdate{Role: &admin})
	if err != nil || promoted.Role != models.RoleAdmin {
		t.Fatalf("admin promotion: %+v %v", promoted, err)
	}
}

func TestUserReads(t *testing.T) {
	f := newFixture(t)
	all := Pagination{Limit: 10}

	_, err := f.users.GetUsers(f.ctx, f.alice, all)
	expectKind(t, err, apperr.ErrForbidden, "")
	page, err := f.users.GetUsers(f.ctx, f.admin, all)
	if err != nil || page.Total != 3 {
		t.Fatalf("GetUsers: total=%d err=%v", page.Total, err)
	}

	_, err = f.users.GetUser(f.ctx, f.alice, f.bob.ID)
	expectKind(t, err, apperr.ErrForbidden, "")
	self, err := f.users.GetUser(f.ctx, f.alice, f.alice.ID)
	if err != nil || self.ID != f.alice.ID {
		t.Fatalf("GetUser: %v", err)
	}

	byDept, err := f.users.GetUsersByDepartment(f.ctx, f.alice, f.dept.ID, all)
	if err != nil || byDept.Total != 3 {
		t.Fatalf("GetUsersByDepartment: total=%d err=%v", byDept.Total, err)
	}
	admins, err := f.users.GetUsersByRole(f.ctx, f.admin, models.RoleAdmin, all)
	if err != nil || admins.Total != 1 {
		t.Fatalf("GetUsersByRole: total=%d err=%v", admins.Total, err)
	}
	_, err = f.users.GetUsersByRole(f.ctx, f.admin, "guest", all)
	expectKind(t, err, apperr.ErrValidation, "")
}

func TestDeleteUserCascadesBookings(t *testing.T) {
	f := newFixture(t)
	slot := f.slot(t, testBase, 3)
	if _, err := f.bookings.CreateBooking(f.ctx, f.alice, BookingCreate{UserID: f.alice.ID, SlotID: slot.ID}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	withCount, err := f.users.GetUser(f.ctx, f.alice, f.alice.ID)
	if err != nil || withCount.SlotBooked != 1 {
		t.Fatalf("SlotBooked: %+v %v", withCount, err)
	}

	expectKind(t, f.users.DeleteUser(f.ctx, f.alice, f.alice.ID), apperr.ErrForbidden, "")
	if err := f.users.DeleteUser(f.ctx, f.admin, f.alice.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	var n int64
	f.db.Model(&models.Booking{}).Where("user_id = ?", f.alice.ID).Count(&n)
	if n != 0 {
		t.Fatalf("bookings survived user deletion: %d", n)
	}
	expectKind(t, f.users.DeleteUser(f.ctx, f.admin, f.alice.ID), apperr.ErrNotFound, "")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	for _, login := range []string{"alice@example.com", "alice"} {
		res, err := f.auth.Login(f.ctx, login, "secret1")
		if err != nil {
			t.Fatalf("Login(%s): %v", login, err)
		}
		if res.User.ID != f.alice.ID || res.TokenType != "bearer" || res.ExpiresIn != 30*time.Minute {
			t.Fatalf("unexpected login result: %+v", res)
		}
	}
	_, err := f.auth.Login(f.ctx, "alice", "wrong")
	expectKind(t, err, apperr.ErrUnauthorized, "")
	_, err = f.auth.Login(f.ctx, "nobody", "secret1")
	expectKind(t, err, apperr.ErrUnauthorized, "")

	actor, err := f.auth.Actor(f.ctx, f.admin.ID)
	if err != nil || actor != f.admin {
		t.Fatalf("Actor: %+v %v", actor, err)
	}
	_, err = f.auth.Actor(f.ctx, 999)
	expectKind(t, err, apperr.ErrUnauthorized, "")

	me, err := f.auth.Me(f.ctx, f.bob)
	if err != nil || me.ID != f.bob.ID || me.Department == nil {
		t.Fatalf("Me: %+v %v", me, err)
	}
}
