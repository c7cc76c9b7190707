package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crispchris33/security-advisor-chatbot/internal/errors"
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
)

// Memory is a map-backed Gateway with the same contract as Postgres.
// It backs the "memory" DSN for local development and the tests.
type Memory struct {
	mu               sync.Mutex
	records          map[string]models.ApprovalRecord
	hub              *Hub
	defaultAllowance int
	now              func() time.Time
}

func NewMemory(defaultAllowance int) *Memory {
	return &Memory{
		records:          make(map[string]models.ApprovalRecord),
		hub:              NewHub(),
		defaultAllowance: defaultAllowance,
		now:              time.Now,
	}
}

func (m *Memory) CheckApproval(ctx context.Context, email string) (Approval, error) {
	if email == "" {
		return Approval{Status: models.StatusNone}, errors.ErrInvalidEmail
	}

	m.mu.Lock()
	rec, ok := m.records[email]
	if ok {
		rec.LastAccessed = m.now()
		m.records[email] = rec
	} else {
		rec = models.ApprovalRecord{
			Email:         email,
			Status:        models.StatusPending,
			ChatAllowance: m.defaultAllowance,
			DateCreated:   m.now(),
			LastAccessed:  m.now(),
		}
		m.records[email] = rec
	}
	m.mu.Unlock()

	// Parity with Postgres, where the notify trigger fires for the
	// insert and the last_accessed refresh alike.
	m.hub.Publish(email, rec)

	status := rec.Status
	if !status.Valid() {
		status = models.StatusPending
	}
	return Approval{Status: status, IsAdmin: rec.IsAdmin}, nil
}

func (m *Memory) ListAll(ctx context.Context) ([]models.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]models.ApprovalRecord, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	return records, nil
}

func (m *Memory) SetStatus(ctx context.Context, email string, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	return m.patch(email, func(rec *models.ApprovalRecord) { rec.Status = status })
}

func (m *Memory) SetAdminRole(ctx context.Context, email string, isAdmin bool) error {
	return m.patch(email, func(rec *models.ApprovalRecord) { rec.IsAdmin = isAdmin })
}

func (m *Memory) SetChatAllowance(ctx context.Context, email string, allowance int) error {
	if allowance < 0 {
		return fmt.Errorf("chat allowance must be >= 0, got %d", allowance)
	}
	return m.patch(email, func(rec *models.ApprovalRecord) { rec.ChatAllowance = allowance })
}

func (m *Memory) patch(email string, mutate func(*models.ApprovalRecord)) error {
	m.mu.Lock()
	rec, ok := m.records[email]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", errors.ErrNotFound, email)
	}
	mutate(&rec)
	m.records[email] = rec
	m.mu.Unlock()

	m.hub.Publish(email, rec)
	return nil
}

func (m *Memory) Remove(ctx context.Context, email string) error {
	m.mu.Lock()
	delete(m.records, email)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Subscribe(email string, onChange func(models.ApprovalRecord)) (func(), error) {
	if email == "" {
		return nil, errors.ErrInvalidEmail
	}

	m.mu.Lock()
	rec, ok := m.records[email]
	m.mu.Unlock()

	cancel := m.hub.Subscribe(email, onChange)
	if ok {
		onChange(rec)
	}
	return cancel, nil
}
