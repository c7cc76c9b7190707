package store

import (
	"context"

	"github.com/crispchris33/security-advisor-chatbot/internal/models"
)

// Approval is the gate decision CheckApproval hands back to callers.
type Approval struct {
	Status  models.Status `json:"status"`
	IsAdmin bool          `json:"is_admin"`
}

// Gateway wraps CRUD and subscription operations on approval records.
//
// CheckApproval is lookup-or-create: an existing record gets its
// last_accessed refreshed, an absent one is created pending with the
// default allowance. An empty email returns {none, false} together
// with errors.ErrInvalidEmail and touches nothing.
//
// Subscribe fires onChange once immediately with the current record
// (if it exists) and again on every later mutation to that email.
// A subscriber may see the same state more than once; deletions do
// not fire. The returned cancel func permanently stops delivery:
// after it returns, onChange is never invoked again.
type Gateway interface {
	CheckApproval(ctx context.Context, email string) (Approval, error)
	ListAll(ctx context.Context) ([]models.ApprovalRecord, error)
	SetStatus(ctx context.Context, email string, status models.Status) error
	SetAdminRole(ctx context.Context, email string, isAdmin bool) error
	SetChatAllowance(ctx context.Context, email string, allowance int) error
	Remove(ctx context.Context, email string) error
	Subscribe(email string, onChange func(models.ApprovalRecord)) (cancel func(), err error)
}
