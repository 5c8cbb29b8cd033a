package model

import (
	"time"

	"github.com/google/uuid"
)

// Account is a local application account owned by the account store. The SSO
// core reads it by username and rewrites its identity fields on every
// successful login so the record never drifts from the IdP's view.
type Account struct {
	ID          uuid.UUID `json:"id"          db:"id"`
	Username    string    `json:"username"    db:"username"`
	Email       string    `json:"email"       db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	FirstName   string    `json:"first_name"  db:"first_name"`
	LastName    string    `json:"last_name"   db:"last_name"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"  db:"updated_at"`
}

// AccountFields carries the writable fields for a create or sync. The
// PasswordPlaceholder is an unusable random credential: the store requires a
// non-empty credential column, but it is never used for authentication while
// SSO is enabled.
type AccountFields struct {
	Username            string
	Email               string
	DisplayName         string
	FirstName           string
	LastName            string
	PasswordPlaceholder string
}
