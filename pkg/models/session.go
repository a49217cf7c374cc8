package models

import (
	"strings"
	"time"
)

// Role is the directory role attached to an identity.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// ParseRole normalizes a free-text role value from the directory.
// Unknown or empty values default to staff.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	default:
		return RoleStaff
	}
}

// Session is the authenticated identity's session record. It exists only
// for the lifetime of one browsing session and is never persisted.
type Session struct {
	UserID   string
	FullName string
	Email    string
	Role     Role
	// Token is the session secret: root key material for the cache
	// encryption layer. Never logged or transmitted.
	Token     string
	CreatedAt time.Time
}

// Requester identifies who is asking for credentials when resolving access.
func (s *Session) Requester() Requester {
	return Requester{UserID: s.UserID, Role: s.Role, FullName: s.FullName}
}

// Requester carries the fields the access resolver and the directory's
// authorization boundary need.
type Requester struct {
	UserID   string `json:"userId"`
	Role     Role   `json:"role"`
	FullName string `json:"fullName"`
}

// Identity is the directory's answer to a successful validation.
// It never carries the password back.
type Identity struct {
	UserID   string `json:"userId"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// UserRecord is one raw row of the user directory.
type UserRecord struct {
	UserID   string
	Password string
	FullName string
	Email    string
	Role     Role
}

// Identity strips the password from a user record.
func (u UserRecord) Identity() Identity {
	return Identity{UserID: u.UserID, FullName: u.FullName, Email: u.Email, Role: u.Role}
}
