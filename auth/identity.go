/*
Package auth provides the caller identity contract and its JWT session
implementation.

PURPOSE:
  Login and session issuance belong to the back-office; this service only
  verifies the bearer token it is handed and answers three questions: is
  the caller authenticated, who are they, and do they hold a permission
  scope. It also enforces business access: a process serves one business,
  and a token must grant it.

ROLES:
  owner, admin, developer  Hold every scope and every business
  anything else           Scopes from the "perms" claim, businesses
                          from the "businesses" claim (empty = none)

CLAIMS (HS256):
  {"sub": "7", "username": "rina", "role": "frontdesk",
   "perms": ["frontdesk"], "businesses": ["narayana-hotel"], "exp": ...}

SEE ALSO:
  - jwt.go: Token issue/verify
  - middleware.go: chi middleware and context helpers
*/
package auth

import "slices"

// Roles with unrestricted access.
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
)

// ScopeFrontDesk is required to check guests in.
const ScopeFrontDesk = "frontdesk"

// Identity is what handlers know about the caller.
type Identity interface {
	IsAuthenticated() bool
	CurrentUser() (User, bool)
	HasPermission(scope string) bool
}

type User struct {
	ID          int64
	Username    string
	Role        string
	Permissions []string
	Businesses  []string
}

func (u User) privileged() bool {
	return u.Role == RoleOwner || u.Role == RoleAdmin || u.Role == RoleDeveloper
}

// CanAccessBusiness reports whether the user may act on businessID.
func (u User) CanAccessBusiness(businessID string) bool {
	if u.privileged() {
		return true
	}
	return slices.Contains(u.Businesses, businessID)
}

// Session is an authenticated Identity.
type Session struct {
	user User
}

func NewSession(u User) *Session {
	return &Session{user: u}
}

func (s *Session) IsAuthenticated() bool { return true }

func (s *Session) CurrentUser() (User, bool) { return s.user, true }

func (s *Session) HasPermission(scope string) bool {
	return s.user.privileged() || slices.Contains(s.user.Permissions, scope)
}

// Anonymous is the Identity of a request without a valid token.
type Anonymous struct{}

func (Anonymous) IsAuthenticated() bool           { return false }
func (Anonymous) CurrentUser() (User, bool)       { return User{}, false }
func (Anonymous) HasPermission(scope string) bool { return false }
