package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not
	// match. Unknown email and wrong password collapse into this one error
	// so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrRegistrationFailed hides which constraint rejected a registration.
	// In practice it means the email is already in use, but the caller is
	// not told that.
	ErrRegistrationFailed = errors.New("registration failed")

	ErrEmailAndPasswordRequired = errors.New("email and password required")

	// ErrNoteNotFound covers both a nonexistent note id and a note owned by
	// someone else. The two cases must stay indistinguishable so a non-owner
	// cannot confirm that an id exists.
	ErrNoteNotFound = errors.New("note not found")

	ErrTitleRequired = errors.New("title required")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidRole   = errors.New("invalid role")
)
