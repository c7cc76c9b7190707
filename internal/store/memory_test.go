package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crispchris33/security-advisor-chatbot/internal/errors"
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
)

func TestCheckApprovalCreatesPendingOnce(t *testing.T) {
	gw := NewMemory(5)
	ctx := context.Background()

	first, err := gw.CheckApproval(ctx, "new@example.com")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, first.Status)
	assert.False(t, first.IsAdmin)

	second, err := gw.CheckApproval(ctx, "new@example.com")
	assert.NoError(t, err)
	assert.Equal(t, first, second)

	records, err := gw.ListAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 5, records[0].ChatAllowance)
}

func TestCheckApprovalEmptyEmail(t *testing.T) {
	gw := NewMemory(5)

	result, err := gw.CheckApproval(context.Background(), "")
	assert.ErrorIs(t, err, errors.ErrInvalidEmail)
	assert.Equal(t, models.StatusNone, result.Status)
	assert.False(t, result.IsAdmin)

	records, _ := gw.ListAll(context.Background())
	assert.Empty(t, records, "invalid input must not create a record")
}

func TestCheckApprovalRefreshesLastAccessed(t *testing.T) {
	gw := NewMemory(5)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	gw.now = func() time.Time { return base }
	gw.CheckApproval(ctx, "a@example.com")

	gw.now = func() time.Time { return base.Add(time.Hour) }
	gw.CheckApproval(ctx, "a@example.com")

	records, _ := gw.ListAll(ctx)
	assert.Equal(t, base, records[0].DateCreated, "date_created is write-once")
	assert.Equal(t, base.Add(time.Hour), records[0].LastAccessed)
}

func TestSetStatusVisibleOnNextLookup(t *testing.T) {
	gw := NewMemory(5)
	ctx := context.Background()
	gw.CheckApproval(ctx, "a@example.com")

	for _, status := range []models.Status{models.StatusApproved, models.StatusDisabled, models.StatusPending} {
		assert.NoError(t, gw.SetStatus(ctx, "a@example.com", status))
		result, err := gw.CheckApproval(ctx, "a@example.com")
		assert.NoError(t, err)
		assert.Equal(t, status, result.Status)
	}
}

func TestSetStatusRejectsInvalid(t *testing.T) {
	gw := NewMemory(5)
	gw.CheckApproval(context.Background(), "a@example.com")

	assert.Error(t, gw.SetStatus(context.Background(), "a@example.com", models.Status("banned")))
	assert.Error(t, gw.SetStatus(context.Background(), "a@example.com", models.StatusNone))
}

func TestPartialUpdatesOnMissingEmail(t *testing.T) {
	gw := NewMemory(5)
	ctx := context.Background()

	assert.ErrorIs(t, gw.SetStatus(ctx, "ghost@example.com", models.StatusApproved), errors.ErrNotFound)
	assert.ErrorIs(t, gw.SetAdminRole(ctx, "ghost@example.com", true), errors.ErrNotFound)
	assert.ErrorIs(t, gw.SetChatAllowance(ctx, "ghost@example.com", 10), errors.ErrNotFound)
}

func TestSetChatAllowanceRejectsNegative(t *testing.T) {
	gw := NewMemory(5)
	gw.CheckApproval(context.Background(), "a@example.com")

	assert.Error(t, gw.SetChatAllowance(context.Background(), "a@example.com", -1))
}

func TestRemoveIsIdempotentAndTerminal(t *testing.T) {
	gw := NewMemory(5)
	ctx := context.Background()

	gw.CheckApproval(ctx, "a@example.com")
	assert.NoError(t, gw.SetStatus(ctx, "a@example.com", models.StatusApproved))
	assert.NoError(t, gw.SetAdminRole(ctx, "a@example.com", true))

	assert.NoError(t, gw.Remove(ctx, "a@example.com"))
	assert.NoError(t, gw.Remove(ctx, "a@example.com"), "deleting a non-existent key is not an error")

	// Re-sign-in must recreate a fresh pending record, not resurrect
	// the deleted one's elevated state.
	result, err := gw.CheckApproval(ctx, "a@example.com")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)
	assert.False(t, result.IsAdmin)
}

func TestSubscribeImmediateAndLive(t *testing.T) {
	gw := NewMemory(5)
	ctx := context.Background()
	gw.CheckApproval(ctx, "a@example.com")

	var seen []models.ApprovalRecord
	cancel, err := gw.Subscribe("a@example.com", func(rec models.ApprovalRecord) {
		seen = append(seen, rec)
	})
	assert.NoError(t, err)
	assert.Len(t, seen, 1, "subscription fires once immediately with current state")
	assert.Equal(t, models.StatusPending, seen[0].Status)

	gw.SetStatus(ctx, "a@example.com", models.StatusApproved)
	assert.Len(t, seen, 2)
	assert.Equal(t, models.StatusApproved, seen[1].Status)

	cancel()
	gw.SetStatus(ctx, "a@example.com", models.StatusDisabled)
	assert.Len(t, seen, 2, "no deliveries after cancel")
}

func TestSubscribeAbsentRecord(t *testing.T) {
	gw := NewMemory(5)

	var seen []models.ApprovalRecord
	cancel, err := gw.Subscribe("later@example.com", func(rec models.ApprovalRecord) {
		seen = append(seen, rec)
	})
	assert.NoError(t, err)
	defer cancel()
	assert.Empty(t, seen, "no immediate delivery when the record does not exist yet")

	gw.CheckApproval(context.Background(), "later@example.com")
	assert.Len(t, seen, 1, "creation is a mutation of the key")
	assert.Equal(t, models.StatusPending, seen[0].Status)

	gw.SetAdminRole(context.Background(), "later@example.com", true)
	assert.Len(t, seen, 2)
	assert.True(t, seen[1].IsAdmin)
}

func TestSubscribeEmptyEmail(t *testing.T) {
	gw := NewMemory(5)
	_, err := gw.Subscribe("", func(models.ApprovalRecord) {})
	assert.ErrorIs(t, err, errors.ErrInvalidEmail)
}
