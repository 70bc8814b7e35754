package store

import (
	"errors"

	"notedesk/pkg/domain"
)

// ErrEmailTaken is returned by CreateUser when the email is already
// registered. The write is atomic: a duplicate attempt leaves no partial row.
var ErrEmailTaken = errors.New("email already taken")

// Store defines persistence operations for users and notes.
//
// Absence is reported as ok=false, never as an error. Mutations that target a
// single row report the number of rows changed (0 or 1) so callers can tell a
// no-op from a hit.
//
// GetNote is deliberately owner-agnostic: admins need unrestricted lookup, so
// the ownership check belongs to the caller (see app.fetchAuthorized).
type Store interface {
	// users
	CreateUser(email, passwordHash string, role domain.Role) (int64, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id int64) (domain.User, bool, error)
	SetUserRole(id int64, role domain.Role) (int64, error)
	ResetUserPassword(id int64, passwordHash string) (int64, error)
	ListUsers() ([]domain.User, error)
	DeleteUser(id int64) (int64, error)
	UserCount() (int64, error)

	// notes
	CreateNote(ownerID int64, title, content string) (int64, error)
	GetNote(id int64) (domain.Note, bool, error)
	ListNotesByOwner(ownerID int64) ([]domain.Note, error)
	ListNotesWithOwner() ([]domain.NoteWithOwner, error)
	UpdateNote(id int64, title, content string) (int64, error)
	DeleteNote(id int64) (int64, error)
	NoteCount() (int64, error)
	LatestNotes(limit int) ([]domain.NoteSummary, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID int64) (string, error)
	GetUserIDByToken(token string) (int64, bool, error)
	DeleteSession(token string) error
}
