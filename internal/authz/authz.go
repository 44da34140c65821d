// Package authz holds the role/permission table and the ownership rule.
// Every service operation consults it before touching data.
package authz

import (
	"fmt"
	"sort"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/models"
)

// Permission is a "resource:action" code.
type Permission string

const (
	UserRead    Permission = "user:read"
	UserReadAll Permission = "user:read_all"
	UserCreate  Permission = "user:create"
	UserUpdate  Permission = "user:update"
	UserDelete  Permission = "user:delete"

	DepartmentRead   Permission = "department:read"
	DepartmentCreate Permission = "department:create"
	DepartmentUpdate Permission = "department:update"
	DepartmentDelete Permission = "department:delete"

	GameRead   Permission = "game:read"
	GameCreate Permission = "game:create"
	GameUpdate Permission = "game:update"
	GameDelete Permission = "game:delete"

	SlotRead   Permission = "slot:read"
	SlotCreate Permission = "slot:create"
	SlotUpdate Permission = "slot:update"
	SlotDelete Permission = "slot:delete"

	BookingRead    Permission = "booking:read"
	BookingReadAll Permission = "booking:read_all"
	BookingCreate  Permission = "booking:create"
	BookingUpdate  Permission = "booking:update"
	BookingConfirm Permission = "booking:confirm"
	BookingDelete  Permission = "booking:delete"
	BookingReset   Permission = "booking:reset"
)

var allPermissions = []Permission{
	UserRead, UserReadAll, UserCreate, UserUpdate, UserDelete,
	DepartmentRead, DepartmentCreate, DepartmentUpdate, DepartmentDelete,
	GameRead, GameCreate, GameUpdate, GameDelete,
	SlotRead, SlotCreate, SlotUpdate, SlotDelete,
	BookingRead, BookingReadAll, BookingCreate, BookingUpdate, BookingConfirm, BookingDelete, BookingReset,
}

var rolePermissions = map[models.Role]map[Permission]struct{}{
	models.RoleAdmin: set(allPermissions...),
	models.RoleNormal: set(
		UserRead, UserUpdate,
		DepartmentRead,
		GameRead,
		SlotRead,
		BookingRead, BookingCreate, BookingUpdate,
	),
}

func set(perms ...Permission) map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return m
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID   uint
	Role models.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Authorizer answers permission and ownership questions.
type Authorizer interface {
	HasPermission(actor Actor, p Permission) bool
	CanAccess(actor Actor, ownerID uint) bool
}

// RoleAuthorizer evaluates the static role table.
type RoleAuthorizer struct{}

// New returns the default role-table authorizer.
func New() RoleAuthorizer { return RoleAuthorizer{} }

func (RoleAuthorizer) HasPermission(actor Actor, p Permission) bool {
	_, ok := rolePermissions[actor.Role][p]
	return ok
}

// CanAccess is true for admins and for the owner of the resource.
func (RoleAuthorizer) CanAccess(actor Actor, ownerID uint) bool {
	return actor.IsAdmin() || actor.ID == ownerID
}

// Permissions lists the permissions granted to role in a stable order.
func Permissions(role models.Role) []Permission {
	perms := make([]Permission, 0, len(rolePermissions[role]))
	for p := range rolePermissions[role] {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// Require fails with a forbidden error when actor lacks p.
func Require(az Authorizer, actor Actor, p Permission) error {
	if !az.HasPermission(actor, p) {
		return apperr.Forbidden(fmt.Sprintf("Insufficient permissions. Required: %s", p))
	}
	return nil
}

// RequireOwner checks p and then that actor may act on a resource owned by ownerID.
func RequireOwner(az Authorizer, actor Actor, p Permission, ownerID uint) error {
	if err := Require(az, actor, p); err != nil {
		return err
	}
	if !az.CanAccess(actor, ownerID) {
		return apperr.Forbidden("Access denied")
	}
	return nil
}
