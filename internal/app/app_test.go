package app

import (
	"errors"
	"testing"

	"notedesk/pkg/auth"
	"notedesk/pkg/domain"
	"notedesk/pkg/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{
		Store:    store.NewMemoryStore(),
		Sessions: store.NewMemorySessionStore(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func mustSignUp(t *testing.T, a *App, email, password string) (domain.User, string) {
	t.Helper()
	user, token, err := a.SignUp(email, password)
	if err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	return user, token
}

func TestSignUpAndLoginRoundTrip(t *testing.T) {
	a := newTestApp(t)

	user, token := mustSignUp(t, a, "a@x.com", "pw1234")
	if user.Role != domain.RoleUser {
		t.Fatalf("new accounts must get the default role, got %q", user.Role)
	}
	if token == "" {
		t.Fatalf("sign-up did not issue a session")
	}

	resolved, ok := a.UserFromToken(token)
	if !ok || resolved.ID != user.ID {
		t.Fatalf("session does not resolve to the new user: ok=%v id=%d", ok, resolved.ID)
	}

	loggedIn, loginToken, err := a.Login("a@x.com", "pw1234")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID || loginToken == "" {
		t.Fatalf("login resolved wrong identity: %+v", loggedIn)
	}
}

func TestSignUpNormalizesEmail(t *testing.T) {
	a := newTestApp(t)

	user, _ := mustSignUp(t, a, "  MiXeD@X.com ", "pw1234")
	if user.Email != "mixed@x.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	// Login with different casing reaches the same account.
	if _, _, err := a.Login("MIXED@x.COM", "pw1234"); err != nil {
		t.Fatalf("login with different casing: %v", err)
	}
	// And the normalized duplicate is rejected.
	if _, _, err := a.SignUp("mixed@x.com", "other1"); !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	a := newTestApp(t)

	if _, _, err := a.SignUp("", "pw1234"); !errors.Is(err, ErrEmailAndPasswordRequired) {
		t.Fatalf("empty email: got %v", err)
	}
	if _, _, err := a.SignUp("a@x.com", "   "); !errors.Is(err, ErrEmailAndPasswordRequired) {
		t.Fatalf("blank password: got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	a := newTestApp(t)
	mustSignUp(t, a, "a@x.com", "pw1234")

	_, _, unknownErr := a.Login("nobody@x.com", "pw1234")
	_, _, wrongErr := a.Login("a@x.com", "wrong-pass")

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("unknown-email and wrong-password errors differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	a := newTestApp(t)
	_, token := mustSignUp(t, a, "a@x.com", "pw1234")

	if err := a.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := a.UserFromToken(token); ok {
		t.Fatalf("token still resolves after logout")
	}
}

func TestNoteOwnershipHidesForeignNotes(t *testing.T) {
	a := newTestApp(t)
	alice, _ := mustSignUp(t, a, "alice@x.com", "pw1234")
	bob, _ := mustSignUp(t, a, "bob@x.com", "pw1234")

	note, err := a.CreateNote(alice, "Shopping", "milk,eggs")
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	// A foreign note and a nonexistent note must be indistinguishable.
	_, foreignErr := a.GetNote(bob, note.ID)
	_, missingErr := a.GetNote(bob, note.ID+1000)
	if !errors.Is(foreignErr, ErrNoteNotFound) || !errors.Is(missingErr, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound for both, got %v and %v", foreignErr, missingErr)
	}

	if _, err := a.UpdateNote(bob, note.ID, "hacked", ""); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("foreign update: got %v", err)
	}
	if err := a.DeleteNote(bob, note.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("foreign delete: got %v", err)
	}

	// The note is untouched and still visible to its owner.
	got, err := a.GetNote(alice, note.ID)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if got.Title != "Shopping" || got.Content != "milk,eggs" {
		t.Fatalf("note mutated by unauthorized calls: %+v", got)
	}
}

func TestAdminPassesOwnershipCheck(t *testing.T) {
	a := newTestApp(t)
	alice, _ := mustSignUp(t, a, "alice@x.com", "pw1234")
	note, err := a.CreateNote(alice, "private", "secret")
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	if err := a.EnsureAdminSeed("admin@example.com", "admin123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	admin, _, err := a.Login("admin@example.com", "admin123")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}

	got, err := a.GetNote(admin, note.ID)
	if err != nil {
		t.Fatalf("admin get foreign note: %v", err)
	}
	if got.ID != note.ID {
		t.Fatalf("admin fetched wrong note: %+v", got)
	}
	if _, err := a.UpdateNote(admin, note.ID, "moderated", ""); err != nil {
		t.Fatalf("admin update foreign note: %v", err)
	}
	if err := a.DeleteNote(admin, note.ID); err != nil {
		t.Fatalf("admin delete foreign note: %v", err)
	}
}

func TestCreateNoteRequiresTitle(t *testing.T) {
	a := newTestApp(t)
	user, _ := mustSignUp(t, a, "a@x.com", "pw1234")

	if _, err := a.CreateNote(user, "   ", "content"); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("blank title: got %v", err)
	}
	note, err := a.CreateNote(user, "  padded  ", "  body  ")
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if note.Title != "padded" || note.Content != "body" {
		t.Fatalf("input not trimmed: %+v", note)
	}

	if _, err := a.UpdateNote(user, note.ID, "", "x"); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("blank title on update: got %v", err)
	}
}

func TestListNotesReturnsOnlyOwn(t *testing.T) {
	a := newTestApp(t)
	alice, _ := mustSignUp(t, a, "alice@x.com", "pw1234")
	bob, _ := mustSignUp(t, a, "bob@x.com", "pw1234")

	a.CreateNote(alice, "a1", "")
	a.CreateNote(bob, "b1", "")
	a.CreateNote(alice, "a2", "")

	notes, err := a.ListNotes(alice)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 2 || notes[0].Title != "a2" || notes[1].Title != "a1" {
		t.Fatalf("unexpected notes: %+v", notes)
	}
}

func TestEnsureAdminSeedIsIdempotent(t *testing.T) {
	a := newTestApp(t)

	if err := a.EnsureAdminSeed("admin@example.com", "admin123"); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := a.EnsureAdminSeed("admin@example.com", "different"); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	// The original credential survives the repeat.
	admin, _, err := a.Login("admin@example.com", "admin123")
	if err != nil {
		t.Fatalf("login with seeded credential: %v", err)
	}
	if !admin.IsAdmin() {
		t.Fatalf("seeded account is not an admin: %+v", admin)
	}

	users, _ := a.ListUsers()
	if len(users) != 1 {
		t.Fatalf("expected one seeded account, got %d", len(users))
	}
}

func TestEnsureAdminSeedKeepsExistingAccount(t *testing.T) {
	a := newTestApp(t)
	mustSignUp(t, a, "owner@x.com", "pw1234")

	// An existing account with the seed email keeps its role and password.
	if err := a.EnsureAdminSeed("owner@x.com", "admin123"); err != nil {
		t.Fatalf("seed over existing account: %v", err)
	}
	user, _, err := a.Login("owner@x.com", "pw1234")
	if err != nil {
		t.Fatalf("original credential rejected: %v", err)
	}
	if user.IsAdmin() {
		t.Fatalf("existing account was promoted by the seed")
	}
}

func TestAdminUserManagement(t *testing.T) {
	a := newTestApp(t)
	target, _ := mustSignUp(t, a, "target@x.com", "pw1234")

	if err := a.SetUserRole(target.ID, "superuser"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("invalid role: got %v", err)
	}
	if err := a.SetUserRole(target.ID+99, "admin"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user: got %v", err)
	}
	if err := a.SetUserRole(target.ID, "admin"); err != nil {
		t.Fatalf("set role: %v", err)
	}
	promoted, _, _ := a.Login("target@x.com", "pw1234")
	if !promoted.IsAdmin() {
		t.Fatalf("role change not persisted: %+v", promoted)
	}

	if err := a.ResetPassword(target.ID, "abc"); !errors.Is(err, auth.ErrPasswordTooShort) {
		t.Fatalf("short password: got %v", err)
	}
	if err := a.ResetPassword(target.ID+99, "newpass1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("reset for missing user: got %v", err)
	}
	if err := a.ResetPassword(target.ID, "newpass1"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, _, err := a.Login("target@x.com", "pw1234"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, _, err := a.Login("target@x.com", "newpass1"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	if err := a.DeleteUser(target.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if err := a.DeleteUser(target.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestAdminNoteOversight(t *testing.T) {
	a := newTestApp(t)
	alice, _ := mustSignUp(t, a, "alice@x.com", "pw1234")
	bob, _ := mustSignUp(t, a, "bob@x.com", "pw1234")
	a.CreateNote(alice, "a1", "")
	bobNote, _ := a.CreateNote(bob, "b1", "")

	all, err := a.AllNotes()
	if err != nil {
		t.Fatalf("all notes: %v", err)
	}
	if len(all) != 2 || all[0].OwnerEmail != "bob@x.com" || all[1].OwnerEmail != "alice@x.com" {
		t.Fatalf("unexpected oversight view: %+v", all)
	}

	if err := a.DeleteAnyNote(bobNote.ID); err != nil {
		t.Fatalf("delete any note: %v", err)
	}
	if err := a.DeleteAnyNote(bobNote.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestStats(t *testing.T) {
	a := newTestApp(t)
	alice, _ := mustSignUp(t, a, "alice@x.com", "pw1234")
	bob, _ := mustSignUp(t, a, "bob@x.com", "pw1234")
	a.CreateNote(alice, "one", "")
	a.CreateNote(bob, "two", "")

	stats, err := a.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Users != 2 || stats.Notes != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if len(stats.Latest) != 2 || stats.Latest[0].Title != "two" {
		t.Fatalf("unexpected latest notes: %+v", stats.Latest)
	}
	if stats.Latest[0].OwnerEmail != "bob@x.com" {
		t.Fatalf("latest notes missing owner email: %+v", stats.Latest[0])
	}
}
