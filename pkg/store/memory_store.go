package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"notedesk/pkg/domain"
)

// MemoryStore keeps users and notes in-process. It mirrors the GormStore
// semantics (monotonic ids, unique email, cascade delete, rows-changed
// counts) so the application layer can be exercised without a database.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[int64]domain.User
	notes      map[int64]domain.Note
	emails     map[string]int64 // email -> user id
	nextUserID int64
	nextNoteID int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]domain.User),
		notes:  make(map[int64]domain.Note),
		emails: make(map[string]int64),
	}
}

// CreateUser registers a user, enforcing email uniqueness.
func (m *MemoryStore) CreateUser(email, passwordHash string, role domain.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.emails[email]; taken {
		return 0, ErrEmailTaken
	}
	m.nextUserID++
	user := domain.User{
		ID:           m.nextUserID,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[user.ID] = user
	m.emails[email] = user.ID
	return user.ID, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return domain.User{}, false, nil
	}
	user, ok := m.users[id]
	return user, ok, nil
}

// GetUserByID returns a user by id.
func (m *MemoryStore) GetUserByID(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	return user, ok, nil
}

// SetUserRole updates the role, reporting rows changed.
func (m *MemoryStore) SetUserRole(id int64, role domain.Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	user.Role = role
	user.UpdatedAt = nowPtr()
	m.users[id] = user
	return 1, nil
}

// ResetUserPassword replaces the stored hash, reporting rows changed.
func (m *MemoryStore) ResetUserPassword(id int64, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = nowPtr()
	m.users[id] = user
	return 1, nil
}

// ListUsers returns all users, newest id first.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// DeleteUser removes the user and cascades to owned notes.
func (m *MemoryStore) DeleteUser(id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	delete(m.users, id)
	delete(m.emails, user.Email)
	for noteID, note := range m.notes {
		if note.UserID == id {
			delete(m.notes, noteID)
		}
	}
	return 1, nil
}

// UserCount returns the number of users.
func (m *MemoryStore) UserCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

// CreateNote inserts a note for the owner.
func (m *MemoryStore) CreateNote(ownerID int64, title, content string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNoteID++
	note := domain.Note{
		ID:        m.nextNoteID,
		UserID:    ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	m.notes[note.ID] = note
	return note.ID, nil
}

// GetNote returns the note regardless of owner.
func (m *MemoryStore) GetNote(id int64) (domain.Note, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	note, ok := m.notes[id]
	return note, ok, nil
}

// ListNotesByOwner returns only the owner's notes, newest id first.
func (m *MemoryStore) ListNotesByOwner(ownerID int64) ([]domain.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Note, 0)
	for _, note := range m.notes {
		if note.UserID == ownerID {
			res = append(res, note)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// ListNotesWithOwner returns every note with its owner's email, newest first.
func (m *MemoryStore) ListNotesWithOwner() ([]domain.NoteWithOwner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.NoteWithOwner, 0, len(m.notes))
	for _, note := range m.notes {
		res = append(res, domain.NoteWithOwner{
			Note:       note,
			OwnerEmail: m.users[note.UserID].Email,
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// UpdateNote replaces title and content, reporting rows changed.
func (m *MemoryStore) UpdateNote(id int64, title, content string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok {
		return 0, nil
	}
	note.Title = title
	note.Content = content
	note.UpdatedAt = nowPtr()
	m.notes[id] = note
	return 1, nil
}

// DeleteNote removes a note, reporting rows changed.
func (m *MemoryStore) DeleteNote(id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return 0, nil
	}
	delete(m.notes, id)
	return 1, nil
}

// NoteCount returns the number of notes.
func (m *MemoryStore) NoteCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.notes)), nil
}

// LatestNotes returns up to limit of the newest notes with owner emails.
func (m *MemoryStore) LatestNotes(limit int) ([]domain.NoteSummary, error) {
	all, err := m.ListNotesWithOwner()
	if err != nil {
		return nil, err
	}
	if limit < len(all) {
		all = all[:limit]
	}
	res := make([]domain.NoteSummary, 0, len(all))
	for _, n := range all {
		res = append(res, domain.NoteSummary{
			ID:         n.ID,
			Title:      n.Title,
			OwnerEmail: n.OwnerEmail,
			CreatedAt:  n.CreatedAt,
		})
	}
	return res, nil
}

func nowPtr() *time.Time {
	t := time.Now().UTC()
	return &t
}

// MemorySessionStore maps tokens to user ids in-process.
type MemorySessionStore struct {
	mu   sync.RWMutex
	sess map[string]int64
}

// NewMemorySessionStore initializes an empty session map.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sess: make(map[string]int64)}
}

// NewSession creates a session token for a user.
func (m *MemorySessionStore) NewSession(userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := uuid.NewString()
	m.sess[token] = userID
	return token, nil
}

// GetUserIDByToken resolves a token to a user id.
func (m *MemorySessionStore) GetUserIDByToken(token string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.sess[token]
	return id, ok, nil
}

// DeleteSession removes a token mapping.
func (m *MemorySessionStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, token)
	return nil
}
