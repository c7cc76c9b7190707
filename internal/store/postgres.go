package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/crispchris33/security-advisor-chatbot/internal/errors"
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
)

const recordColumns = "email, status, is_admin, chat_allowance, date_created, last_accessed"

// Postgres is the production Gateway. Mutations publish the fresh
// record to the hub after the write commits; writes from other
// processes reach the hub through the NOTIFY listener.
type Postgres struct {
	db               *sqlx.DB
	hub              *Hub
	defaultAllowance int
}

func NewPostgres(db *sqlx.DB, hub *Hub, defaultAllowance int) *Postgres {
	return &Postgres{db: db, hub: hub, defaultAllowance: defaultAllowance}
}

func (p *Postgres) CheckApproval(ctx context.Context, email string) (Approval, error) {
	if email == "" {
		return Approval{Status: models.StatusNone}, errors.ErrInvalidEmail
	}

	var rec models.ApprovalRecord
	query := `
		UPDATE users SET last_accessed = CURRENT_TIMESTAMP
		WHERE email = $1
		RETURNING ` + recordColumns
	err := p.db.GetContext(ctx, &rec, query, email)

	if err == sql.ErrNoRows {
		// First-ever sign-in for this email. ON CONFLICT covers the
		// lookup/insert race: a concurrent caller's insert wins and we
		// just refresh last_accessed on it.
		insert := `
			INSERT INTO users (email, status, is_admin, chat_allowance)
			VALUES ($1, $2, FALSE, $3)
			ON CONFLICT (email) DO UPDATE SET last_accessed = CURRENT_TIMESTAMP
			RETURNING ` + recordColumns
		err = p.db.GetContext(ctx, &rec, insert, email, models.StatusPending, p.defaultAllowance)
	}
	if err != nil {
		return Approval{Status: models.StatusNone}, fmt.Errorf("failed to check approval for %s: %w", email, err)
	}

	status := rec.Status
	if !status.Valid() {
		status = models.StatusPending
	}
	return Approval{Status: status, IsAdmin: rec.IsAdmin}, nil
}

func (p *Postgres) ListAll(ctx context.Context) ([]models.ApprovalRecord, error) {
	var records []models.ApprovalRecord
	if err := p.db.SelectContext(ctx, &records, "SELECT "+recordColumns+" FROM users"); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return records, nil
}

func (p *Postgres) SetStatus(ctx context.Context, email string, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	return p.updateField(ctx, email, "UPDATE users SET status = $2 WHERE email = $1 RETURNING "+recordColumns, status)
}

func (p *Postgres) SetAdminRole(ctx context.Context, email string, isAdmin bool) error {
	return p.updateField(ctx, email, "UPDATE users SET is_admin = $2 WHERE email = $1 RETURNING "+recordColumns, isAdmin)
}

func (p *Postgres) SetChatAllowance(ctx context.Context, email string, allowance int) error {
	if allowance < 0 {
		return fmt.Errorf("chat allowance must be >= 0, got %d", allowance)
	}
	return p.updateField(ctx, email, "UPDATE users SET chat_allowance = $2 WHERE email = $1 RETURNING "+recordColumns, allowance)
}

func (p *Postgres) updateField(ctx context.Context, email, query string, value any) error {
	var rec models.ApprovalRecord
	err := p.db.GetContext(ctx, &rec, query, email, value)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", errors.ErrNotFound, email)
	}
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", email, err)
	}
	p.hub.Publish(rec.Email, rec)
	return nil
}

// Remove deletes the record. Deleting an absent email is not an error.
func (p *Postgres) Remove(ctx context.Context, email string) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM users WHERE email = $1", email); err != nil {
		return fmt.Errorf("failed to delete %s: %w", email, err)
	}
	return nil
}

func (p *Postgres) Subscribe(email string, onChange func(models.ApprovalRecord)) (func(), error) {
	if email == "" {
		return nil, errors.ErrInvalidEmail
	}

	var rec models.ApprovalRecord
	err := p.db.Get(&rec, "SELECT "+recordColumns+" FROM users WHERE email = $1", email)
	cancel := p.hub.Subscribe(email, onChange)
	if err == nil {
		onChange(rec)
	} else if err != sql.ErrNoRows {
		cancel()
		return nil, fmt.Errorf("failed to read %s for subscription: %w", email, err)
	}
	return cancel, nil
}
