package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"notedesk/pkg/auth"
	"notedesk/pkg/domain"
)

// MigrationOutcome reports what MigrateLegacyNotes did, so callers can log
// and tests can assert on it instead of inferring from side effects.
type MigrationOutcome int

const (
	// MigrationNotNeeded means the schema already carries the ownership
	// column (or no notes table exists yet).
	MigrationNotNeeded MigrationOutcome = iota
	// MigrationApplied means the column was added and ownerless notes were
	// assigned to the fallback admin.
	MigrationApplied
	// MigrationFailed means the migration was rolled back; the schema is in
	// the same state as before the attempt.
	MigrationFailed
)

func (o MigrationOutcome) String() string {
	switch o {
	case MigrationNotNeeded:
		return "not-needed"
	case MigrationApplied:
		return "applied"
	case MigrationFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// Fallback admin created during legacy migration to hold orphaned notes.
// The credential is a known temporary one the operator is expected to reset.
const (
	fallbackAdminID       int64 = 1
	fallbackAdminEmail          = "temp@local"
	fallbackAdminPassword       = "temp123"
)

// MigrateLegacyNotes upgrades installations whose notes table predates the
// ownership column. When the column is missing it adds it (nullable), makes
// sure a fallback admin exists, and assigns every ownerless note to it, all
// in one transaction, so a failure partway is indistinguishable from "not
// yet migrated". Running it again once the column exists is a no-op.
//
// It must run before InitSchema: auto-migration would add the column itself
// and leave the orphaned notes unassigned.
func (s *GormStore) MigrateLegacyNotes() (MigrationOutcome, error) {
	m := s.db.Migrator()
	if !m.HasTable(&NoteModel{}) || m.HasColumn(&NoteModel{}, "user_id") {
		return MigrationNotNeeded, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("ALTER TABLE notes ADD COLUMN user_id BIGINT").Error; err != nil {
			return fmt.Errorf("add ownership column: %w", err)
		}
		ownerID, err := ensureFallbackAdmin(tx)
		if err != nil {
			return fmt.Errorf("ensure fallback admin: %w", err)
		}
		if err := tx.Model(&NoteModel{}).Where("user_id IS NULL").Update("user_id", ownerID).Error; err != nil {
			return fmt.Errorf("assign ownerless notes: %w", err)
		}
		return nil
	})
	if err != nil {
		return MigrationFailed, err
	}
	return MigrationApplied, nil
}

func ensureFallbackAdmin(tx *gorm.DB) (int64, error) {
	if !tx.Migrator().HasTable(&UserModel{}) {
		if err := tx.Migrator().CreateTable(&UserModel{}); err != nil {
			return 0, err
		}
	}

	var existing UserModel
	err := tx.First(&existing, "id = ?", fallbackAdminID).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	hash, err := auth.HashPassword(fallbackAdminPassword)
	if err != nil {
		return 0, err
	}
	admin := UserModel{
		ID:           fallbackAdminID,
		Email:        fallbackAdminEmail,
		PasswordHash: hash,
		Role:         string(domain.RoleAdmin),
	}
	if err := tx.Create(&admin).Error; err != nil {
		return 0, err
	}
	return admin.ID, nil
}
