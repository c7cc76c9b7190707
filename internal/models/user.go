package models

import "time"

// Status is the approval state of a user's access to the chat.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDisabled Status = "disabled"

	// StatusNone is the degenerate result for identities without a
	// usable email or with no stored record. It is never persisted.
	StatusNone Status = "none"
)

// Valid reports whether s is a storable status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDisabled:
		return true
	}
	return false
}

// ApprovalRecord is the per-user access document, keyed by email.
type ApprovalRecord struct {
	Email         string    `json:"email" db:"email"`
	Status        Status    `json:"status" db:"status"`
	IsAdmin       bool      `json:"is_admin" db:"is_admin"`
	ChatAllowance int       `json:"chat_allowance" db:"chat_allowance"`
	DateCreated   time.Time `json:"date_created" db:"date_created"`
	LastAccessed  time.Time `json:"last_accessed" db:"last_accessed"`
}

// OAuthUserInfo is the identity the OAuth providers hand back. Email
// may be empty (GitHub users can hide theirs).
type OAuthUserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	DisplayName string `json:"login,omitempty"`
	Picture     string `json:"picture,omitempty"`
}
