package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps free-form input onto the closed role enumeration.
func ParseRole(role string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleUser):
		return RoleUser, true
	case string(RoleAdmin):
		return RoleAdmin, true
	default:
		return "", false
	}
}

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// IsAdmin reports whether the user may use admin-scoped operations.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Note struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Title     string     `json:"title"`
	Content   string     `json:"content,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// NoteWithOwner is the admin moderation view of a note, joined with the
// owner's email.
type NoteWithOwner struct {
	Note
	OwnerEmail string `json:"ownerEmail"`
}

// NoteSummary is a dashboard row: enough to show what was written last and
// by whom, without the body.
type NoteSummary struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	OwnerEmail string    `json:"ownerEmail"`
	CreatedAt  time.Time `json:"createdAt"`
}
