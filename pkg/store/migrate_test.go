package store

import (
	"fmt"
	"strings"
	"testing"

	"notedesk/pkg/auth"
	"notedesk/pkg/domain"
)

// newLegacyStore opens a database seeded with the pre-ownership notes table,
// as produced by installations that predate multi-user support.
func newLegacyStore(t *testing.T) *GormStore {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	s, err := NewGormStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	stmts := []string{
		`CREATE TABLE notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			content TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME
		)`,
		`INSERT INTO notes (title, content) VALUES ('grocery list', 'milk,eggs')`,
		`INSERT INTO notes (title, content) VALUES ('ideas', NULL)`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(stmt).Error; err != nil {
			t.Fatalf("seed legacy schema: %v", err)
		}
	}
	return s
}

func TestMigrateLegacyNotesAssignsOrphansToFallbackAdmin(t *testing.T) {
	s := newLegacyStore(t)

	outcome, err := s.MigrateLegacyNotes()
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if outcome != MigrationApplied {
		t.Fatalf("expected applied outcome, got %v", outcome)
	}
	if err := s.InitSchema(); err != nil {
		t.Fatalf("init schema after migrate: %v", err)
	}

	admin, found, err := s.GetUserByEmail("temp@local")
	if err != nil || !found {
		t.Fatalf("fallback admin lookup: found=%v err=%v", found, err)
	}
	if admin.ID != 1 {
		t.Fatalf("fallback admin id = %d, want 1", admin.ID)
	}
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("fallback admin role = %q", admin.Role)
	}
	if !auth.CheckPassword("temp123", admin.PasswordHash) {
		t.Fatalf("fallback admin credential does not verify")
	}

	notes, err := s.ListNotesByOwner(admin.ID)
	if err != nil {
		t.Fatalf("list migrated notes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected both legacy notes assigned, got %d", len(notes))
	}
	for _, n := range notes {
		if n.UserID != admin.ID {
			t.Fatalf("note %d owned by %d, want %d", n.ID, n.UserID, admin.ID)
		}
	}
	if notes[1].Content != "milk,eggs" {
		t.Fatalf("legacy content lost: %+v", notes[1])
	}
}

func TestMigrateLegacyNotesIsIdempotent(t *testing.T) {
	s := newLegacyStore(t)

	if outcome, err := s.MigrateLegacyNotes(); err != nil || outcome != MigrationApplied {
		t.Fatalf("first run: outcome=%v err=%v", outcome, err)
	}
	if outcome, err := s.MigrateLegacyNotes(); err != nil || outcome != MigrationNotNeeded {
		t.Fatalf("second run: outcome=%v err=%v", outcome, err)
	}
	if err := s.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	if outcome, err := s.MigrateLegacyNotes(); err != nil || outcome != MigrationNotNeeded {
		t.Fatalf("run after schema init: outcome=%v err=%v", outcome, err)
	}

	users, err := s.UserCount()
	if err != nil {
		t.Fatalf("user count: %v", err)
	}
	if users != 1 {
		t.Fatalf("expected single fallback admin, got %d users", users)
	}
}

func TestMigrateLegacyNotesSkipsFreshDatabase(t *testing.T) {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	s, err := NewGormStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	// No tables at all: nothing to migrate.
	if outcome, err := s.MigrateLegacyNotes(); err != nil || outcome != MigrationNotNeeded {
		t.Fatalf("fresh db: outcome=%v err=%v", outcome, err)
	}

	// A schema created by InitSchema already has ownership.
	if err := s.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	if outcome, err := s.MigrateLegacyNotes(); err != nil || outcome != MigrationNotNeeded {
		t.Fatalf("modern db: outcome=%v err=%v", outcome, err)
	}

	// The fallback admin must not be seeded when nothing was migrated.
	if _, found, _ := s.GetUserByEmail("temp@local"); found {
		t.Fatalf("fallback admin created without a migration")
	}
}

func TestMigrateLegacyNotesKeepsExistingFirstUser(t *testing.T) {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	s, err := NewGormStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	stmts := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME
		)`,
		`INSERT INTO users (email, password_hash, role) VALUES ('existing@x.com', 'hash', 'user')`,
		`CREATE TABLE notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			content TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME
		)`,
		`INSERT INTO notes (title, content) VALUES ('orphan', NULL)`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(stmt).Error; err != nil {
			t.Fatalf("seed legacy schema: %v", err)
		}
	}

	if outcome, err := s.MigrateLegacyNotes(); err != nil || outcome != MigrationApplied {
		t.Fatalf("migrate: outcome=%v err=%v", outcome, err)
	}

	// User id 1 already existed, so no fallback admin is inserted and the
	// orphaned note lands on the existing first account.
	if _, found, _ := s.GetUserByEmail("temp@local"); found {
		t.Fatalf("fallback admin created despite existing user 1")
	}
	note, found, err := s.GetNote(1)
	if err != nil || !found {
		t.Fatalf("get migrated note: found=%v err=%v", found, err)
	}
	if note.UserID != 1 {
		t.Fatalf("orphan assigned to %d, want existing user 1", note.UserID)
	}
}
