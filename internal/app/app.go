package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notedesk/pkg/auth"
	"notedesk/pkg/domain"
	"notedesk/pkg/store"
)

// How many notes the admin dashboard shows in its latest-activity list.
const latestNotesLimit = 10

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	JWTSecret     string
	Store         store.Store
	Sessions      store.SessionStore
}

// App is the core application service wiring together the data store,
// session store, and the authorization rules that scope every operation to
// the caller's identity.
type App struct {
	store    store.Store
	sessions store.SessionStore
}

// New constructs the application. When no store is injected it opens the
// configured database, runs the legacy ownership migration (best-effort,
// non-fatal: a failure is logged and startup continues unmigrated), and
// initializes the schema.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		outcome, err := gormStore.MigrateLegacyNotes()
		switch {
		case err != nil:
			slog.Warn("legacy note migration skipped", "outcome", outcome.String(), "err", err)
		case outcome == store.MigrationApplied:
			slog.Info("legacy notes migrated to fallback admin")
		}
		if err := gormStore.InitSchema(); err != nil {
			return nil, fmt.Errorf("init schema: %w", err)
		}
		dataStore = gormStore
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch {
		case cfg.JWTSecret != "":
			sessionStore = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
		case cfg.RedisAddr != "":
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("session store required (jwtSecret or redisAddr)")
		}
	}

	return &App{
		store:    dataStore,
		sessions: sessionStore,
	}, nil
}

// EnsureAdminSeed creates an admin account with the given credentials if no
// account with that email exists. Idempotent; meant to run once at startup.
func (a *App) EnsureAdminSeed(email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return ErrEmailAndPasswordRequired
	}
	_, found, err := a.store.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("check admin email: %w", err)
	}
	if found {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := a.store.CreateUser(email, hash, domain.RoleAdmin); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

// SignUp registers a new user with the default role and issues a session.
// A duplicate email surfaces as the generic ErrRegistrationFailed.
func (a *App) SignUp(email, password string) (domain.User, string, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return domain.User{}, "", ErrEmailAndPasswordRequired
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	id, err := a.store.CreateUser(email, hash, domain.RoleUser)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return domain.User{}, "", ErrRegistrationFailed
		}
		return domain.User{}, "", fmt.Errorf("create user: %w", err)
	}
	user, found, err := a.store.GetUserByID(id)
	if err != nil || !found {
		return domain.User{}, "", fmt.Errorf("load created user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token. Unknown email and
// wrong password produce the same error.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = normalizeEmail(email)
	user, found, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !found || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// Logout removes a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// ListNotes returns the caller's own notes, newest first.
func (a *App) ListNotes(user domain.User) ([]domain.Note, error) {
	return a.store.ListNotesByOwner(user.ID)
}

// GetNote fetches a note the caller is allowed to see. A nonexistent id and
// someone else's note both come back as ErrNoteNotFound; admins pass the
// ownership check on any note.
func (a *App) GetNote(user domain.User, id int64) (domain.Note, error) {
	return a.fetchAuthorized(user, id)
}

// CreateNote stores a new note owned by the caller.
func (a *App) CreateNote(user domain.User, title, content string) (domain.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Note{}, ErrTitleRequired
	}
	id, err := a.store.CreateNote(user.ID, title, strings.TrimSpace(content))
	if err != nil {
		return domain.Note{}, fmt.Errorf("create note: %w", err)
	}
	note, found, err := a.store.GetNote(id)
	if err != nil || !found {
		return domain.Note{}, fmt.Errorf("load created note: %w", err)
	}
	return note, nil
}

// UpdateNote replaces a note's title and content after the ownership check.
func (a *App) UpdateNote(user domain.User, id int64, title, content string) (domain.Note, error) {
	note, err := a.fetchAuthorized(user, id)
	if err != nil {
		return domain.Note{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Note{}, ErrTitleRequired
	}
	if _, err := a.store.UpdateNote(note.ID, title, strings.TrimSpace(content)); err != nil {
		return domain.Note{}, fmt.Errorf("update note: %w", err)
	}
	updated, found, err := a.store.GetNote(note.ID)
	if err != nil || !found {
		return domain.Note{}, fmt.Errorf("load updated note: %w", err)
	}
	return updated, nil
}

// DeleteNote removes a note after the ownership check.
func (a *App) DeleteNote(user domain.User, id int64) error {
	note, err := a.fetchAuthorized(user, id)
	if err != nil {
		return err
	}
	if _, err := a.store.DeleteNote(note.ID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// fetchAuthorized is the fetch-and-authorize step every user-facing note
// mutation goes through: unscoped lookup, then an explicit ownership
// predicate. A mismatch is reported exactly like a missing row.
func (a *App) fetchAuthorized(user domain.User, id int64) (domain.Note, error) {
	note, found, err := a.store.GetNote(id)
	if err != nil {
		return domain.Note{}, fmt.Errorf("fetch note: %w", err)
	}
	if !found || (note.UserID != user.ID && !user.IsAdmin()) {
		return domain.Note{}, ErrNoteNotFound
	}
	return note, nil
}

// ListUsers returns all users (admin use only).
func (a *App) ListUsers() ([]domain.User, error) {
	return a.store.ListUsers()
}

// SetUserRole changes a user's role (admin use only). The role must parse
// into the closed enumeration. Nothing stops an admin demoting the last
// remaining admin; that matches the original behavior and is a known gap.
func (a *App) SetUserRole(id int64, role string) error {
	parsed, ok := domain.ParseRole(role)
	if !ok {
		return ErrInvalidRole
	}
	rows, err := a.store.SetUserRole(id, parsed)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ResetPassword replaces a user's credential (admin use only).
func (a *App) ResetPassword(id int64, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	rows, err := a.store.ResetUserPassword(id, hash)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes an account and all its notes (admin use only).
func (a *App) DeleteUser(id int64) error {
	rows, err := a.store.DeleteUser(id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AllNotes returns every note with its owner's email (admin use only).
func (a *App) AllNotes() ([]domain.NoteWithOwner, error) {
	return a.store.ListNotesWithOwner()
}

// DeleteAnyNote removes any note regardless of owner (admin use only).
func (a *App) DeleteAnyNote(id int64) error {
	rows, err := a.store.DeleteNote(id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if rows == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// Stats aggregates the admin dashboard numbers.
type Stats struct {
	Users  int64                `json:"users"`
	Notes  int64                `json:"notes"`
	Latest []domain.NoteSummary `json:"latest"`
}

// Stats returns user/note counts and the latest notes (admin use only).
func (a *App) Stats() (Stats, error) {
	users, err := a.store.UserCount()
	if err != nil {
		return Stats{}, fmt.Errorf("count users: %w", err)
	}
	notes, err := a.store.NoteCount()
	if err != nil {
		return Stats{}, fmt.Errorf("count notes: %w", err)
	}
	latest, err := a.store.LatestNotes(latestNotesLimit)
	if err != nil {
		return Stats{}, fmt.Errorf("latest notes: %w", err)
	}
	return Stats{Users: users, Notes: notes, Latest: latest}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
