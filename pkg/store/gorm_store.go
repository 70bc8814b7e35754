package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"notedesk/pkg/domain"
)

// GormStore implements Store on top of GORM. Postgres DSNs get the pgx
// driver; anything else is treated as a SQLite path, matching the original
// single-file deployments.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database. InitSchema must run before the store
// accepts traffic; it is kept separate so the legacy migration can inspect
// the untouched schema first (see MigrateLegacyNotes).
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(openDialector(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return &GormStore{db: db}, nil
}

func openDialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// InitSchema creates the users and notes tables when absent and enables
// referential-integrity enforcement for the lifetime of the connection.
// Safe to call repeatedly.
func (s *GormStore) InitSchema() error {
	if s.dialectIsSQLite() {
		if err := s.db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if err := s.db.AutoMigrate(&UserModel{}, &NoteModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *GormStore) dialectIsSQLite() bool {
	return s.db.Dialector.Name() == "sqlite"
}

// CreateUser inserts a user and returns the storage-assigned id.
func (s *GormStore) CreateUser(email, passwordHash string, role domain.Role) (int64, error) {
	model := UserModel{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         string(role),
	}
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrEmailTaken
		}
		return 0, err
	}
	return model.ID, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by id.
func (s *GormStore) GetUserByID(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SetUserRole updates the role and returns the number of rows changed.
func (s *GormStore) SetUserRole(id int64, role domain.Role) (int64, error) {
	res := s.db.Model(&UserModel{}).Where("id = ?", id).Updates(map[string]any{
		"role":       string(role),
		"updated_at": now(),
	})
	return res.RowsAffected, res.Error
}

// ResetUserPassword replaces the stored credential hash.
func (s *GormStore) ResetUserPassword(id int64, passwordHash string) (int64, error) {
	res := s.db.Model(&UserModel{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash": passwordHash,
		"updated_at":    now(),
	})
	return res.RowsAffected, res.Error
}

// ListUsers returns all users, newest id first.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// DeleteUser removes the user and all owned notes in one transaction so a
// partial failure can never leave orphaned notes.
func (s *GormStore) DeleteUser(id int64) (int64, error) {
	var rows int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&NoteModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&UserModel{}, "id = ?", id)
		rows = res.RowsAffected
		return res.Error
	})
	return rows, err
}

// UserCount returns the number of users.
func (s *GormStore) UserCount() (int64, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CreateNote inserts a note for the owner and returns its id.
func (s *GormStore) CreateNote(ownerID int64, title, content string) (int64, error) {
	model := NoteModel{
		UserID:  ownerID,
		Title:   title,
		Content: contentToColumn(content),
	}
	if err := s.db.Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// GetNote returns the note regardless of owner. Callers must verify
// ownership before trusting the result on user-facing paths.
func (s *GormStore) GetNote(id int64) (domain.Note, bool, error) {
	var model NoteModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Note{}, false, nil
		}
		return domain.Note{}, false, err
	}
	return noteFromModel(model), true, nil
}

// ListNotesByOwner returns only the owner's notes, newest id first.
func (s *GormStore) ListNotesByOwner(ownerID int64) ([]domain.Note, error) {
	var models []NoteModel
	if err := s.db.Where("user_id = ?", ownerID).Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Note, 0, len(models))
	for _, m := range models {
		res = append(res, noteFromModel(m))
	}
	return res, nil
}

type noteOwnerRow struct {
	ID         int64
	UserID     int64
	Title      string
	Content    *string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	OwnerEmail string
}

func (r noteOwnerRow) note() domain.Note {
	return noteFromModel(NoteModel{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	})
}

// ListNotesWithOwner returns every note joined with its owner's email,
// newest id first. Admin-only view.
func (s *GormStore) ListNotesWithOwner() ([]domain.NoteWithOwner, error) {
	var rows []noteOwnerRow
	err := s.db.Model(&NoteModel{}).
		Select("notes.*, users.email AS owner_email").
		Joins("JOIN users ON users.id = notes.user_id").
		Order("notes.id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.NoteWithOwner, 0, len(rows))
	for _, r := range rows {
		res = append(res, domain.NoteWithOwner{
			Note:       r.note(),
			OwnerEmail: r.OwnerEmail,
		})
	}
	return res, nil
}

// UpdateNote replaces title and content and stamps updated_at.
func (s *GormStore) UpdateNote(id int64, title, content string) (int64, error) {
	res := s.db.Model(&NoteModel{}).Where("id = ?", id).Updates(map[string]any{
		"title":      title,
		"content":    contentToColumn(content),
		"updated_at": now(),
	})
	return res.RowsAffected, res.Error
}

// DeleteNote removes a note by id.
func (s *GormStore) DeleteNote(id int64) (int64, error) {
	res := s.db.Delete(&NoteModel{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// NoteCount returns the number of notes.
func (s *GormStore) NoteCount() (int64, error) {
	var count int64
	if err := s.db.Model(&NoteModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// LatestNotes returns up to limit of the newest notes with owner emails.
func (s *GormStore) LatestNotes(limit int) ([]domain.NoteSummary, error) {
	var rows []noteOwnerRow
	err := s.db.Model(&NoteModel{}).
		Select("notes.id, notes.title, notes.created_at, users.email AS owner_email").
		Joins("JOIN users ON users.id = notes.user_id").
		Order("notes.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.NoteSummary, 0, len(rows))
	for _, r := range rows {
		res = append(res, domain.NoteSummary{
			ID:         r.ID,
			Title:      r.Title,
			OwnerEmail: r.OwnerEmail,
			CreatedAt:  r.CreatedAt,
		})
	}
	return res, nil
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func noteFromModel(m NoteModel) domain.Note {
	note := domain.Note{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Content != nil {
		note.Content = *m.Content
	}
	return note
}

func contentToColumn(content string) *string {
	if content == "" {
		return nil
	}
	return &content
}

func now() time.Time {
	return time.Now().UTC()
}
