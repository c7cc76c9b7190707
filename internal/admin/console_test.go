package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/crispchris33/security-advisor-chatbot/internal/models"
	"github.com/crispchris33/security-advisor-chatbot/internal/signal"
	"github.com/crispchris33/security-advisor-chatbot/internal/store"
)

// MockGateway is a mock type for the store.Gateway interface.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CheckApproval(ctx context.Context, email string) (store.Approval, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(store.Approval), args.Error(1)
}

func (m *MockGateway) ListAll(ctx context.Context) ([]models.ApprovalRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ApprovalRecord), args.Error(1)
}

func (m *MockGateway) SetStatus(ctx context.Context, email string, status models.Status) error {
	args := m.Called(ctx, email, status)
	return args.Error(0)
}

func (m *MockGateway) SetAdminRole(ctx context.Context, email string, isAdmin bool) error {
	args := m.Called(ctx, email, isAdmin)
	return args.Error(0)
}

func (m *MockGateway) SetChatAllowance(ctx context.Context, email string, allowance int) error {
	args := m.Called(ctx, email, allowance)
	return args.Error(0)
}

func (m *MockGateway) Remove(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockGateway) Subscribe(email string, onChange func(models.ApprovalRecord)) (func(), error) {
	args := m.Called(email)
	return func() {}, args.Error(0)
}

func seededConsole(t *testing.T, emails ...string) (*Console, *store.Memory) {
	t.Helper()
	gw := store.NewMemory(5)
	for _, email := range emails {
		_, err := gw.CheckApproval(context.Background(), email)
		assert.NoError(t, err)
	}
	con := NewConsole(gw, signal.NewBroadcaster())
	assert.NoError(t, con.Load(context.Background()))
	return con, gw
}

func TestFilterMatchesEmailOrStatus(t *testing.T) {
	con, gw := seededConsole(t, "alice@x.com", "bob@x.com", "carol@x.com")
	ctx := context.Background()
	assert.NoError(t, gw.SetStatus(ctx, "alice@x.com", models.StatusApproved))
	assert.NoError(t, gw.SetStatus(ctx, "carol@x.com", models.StatusDisabled))
	assert.NoError(t, con.Reload(ctx))

	con.SetSearch("pend")
	v := con.View()
	assert.Equal(t, 1, v.Total)
	assert.Equal(t, "bob@x.com", v.Records[0].Email)

	con.SetSearch("ALICE")
	v = con.View()
	assert.Equal(t, 1, v.Total, "search is case-insensitive")
	assert.Equal(t, "alice@x.com", v.Records[0].Email)

	con.SetSearch("")
	assert.Equal(t, 3, con.View().Total)
}

func TestSortByEmailTogglesDirection(t *testing.T) {
	con, _ := seededConsole(t, "b@x", "a@x")

	v := con.View()
	assert.Equal(t, "a@x", v.Records[0].Email)
	assert.Equal(t, "b@x", v.Records[1].Email)

	// Same key again reverses.
	assert.NoError(t, con.SortBy(SortEmail))
	v = con.View()
	assert.Equal(t, "b@x", v.Records[0].Email)
	assert.Equal(t, "a@x", v.Records[1].Email)

	// A new key resets to ascending.
	assert.NoError(t, con.SortBy(SortStatus))
	assert.True(t, con.View().SortAsc)
}

func TestSortByTimestampMissingSortsEarliest(t *testing.T) {
	gw := store.NewMemory(5)
	con := NewConsole(gw, signal.NewBroadcaster())
	con.records = []models.ApprovalRecord{
		{Email: "new@x", DateCreated: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Email: "legacy@x"}, // zero timestamp
	}
	con.loaded = true

	assert.NoError(t, con.SortBy(SortDateCreated))
	v := con.View()
	assert.Equal(t, "legacy@x", v.Records[0].Email)
}

func TestSortByUnknownKey(t *testing.T) {
	con, _ := seededConsole(t, "a@x")
	assert.Error(t, con.SortBy("chatAllowance"))
}

func TestPagination(t *testing.T) {
	con, _ := seededConsole(t, "a@x", "b@x", "c@x", "d@x", "e@x", "f@x", "g@x")

	v := con.View()
	assert.Equal(t, 2, v.TotalPages)
	assert.Len(t, v.Records, 5)

	con.SetPage(2)
	v = con.View()
	assert.Len(t, v.Records, 2)

	// Out-of-range pages clamp.
	con.SetPage(99)
	assert.Equal(t, 2, con.View().Page)
	con.SetPage(-3)
	assert.Equal(t, 1, con.View().Page)
}

func TestSearchResetsPage(t *testing.T) {
	con, _ := seededConsole(t, "a@x", "b@x", "c@x", "d@x", "e@x", "f@x", "g@x")

	con.SetPage(2)
	assert.Equal(t, 2, con.View().Page)

	con.SetSearch("@x")
	assert.Equal(t, 1, con.View().Page)
}

func TestEmptySnapshotHasOnePage(t *testing.T) {
	con, _ := seededConsole(t)
	v := con.View()
	assert.Equal(t, 1, v.TotalPages)
	assert.Empty(t, v.Records)
}

func TestSetStatusPatchesOptimistically(t *testing.T) {
	con, _ := seededConsole(t, "a@x")
	refresh, cancel := con.refresh.Subscribe()
	defer cancel()

	assert.NoError(t, con.SetStatus(context.Background(), "a@x", models.StatusApproved))
	assert.Equal(t, models.StatusApproved, con.View().Records[0].Status)

	select {
	case <-refresh:
	default:
		t.Fatal("status change must broadcast the refresh signal")
	}
}

func TestFailedMutationRollsBack(t *testing.T) {
	gw := new(MockGateway)
	gw.On("SetStatus", mock.Anything, "a@x", models.StatusApproved).Return(errors.New("store down"))

	con := NewConsole(gw, signal.NewBroadcaster())
	con.records = []models.ApprovalRecord{{Email: "a@x", Status: models.StatusPending}}
	con.loaded = true

	err := con.SetStatus(context.Background(), "a@x", models.StatusApproved)
	assert.Error(t, err)
	assert.Equal(t, models.StatusPending, con.View().Records[0].Status, "optimistic patch restored on failure")
	gw.AssertExpectations(t)
}

func TestFailedRemoveRestoresRecord(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Remove", mock.Anything, "a@x").Return(errors.New("store down"))

	con := NewConsole(gw, signal.NewBroadcaster())
	con.records = []models.ApprovalRecord{{Email: "a@x", Status: models.StatusApproved}}
	con.loaded = true

	assert.Error(t, con.Remove(context.Background(), "a@x"))
	v := con.View()
	assert.Equal(t, 1, v.Total)
	assert.Equal(t, models.StatusApproved, v.Records[0].Status)
}

func TestRemoveDropsRecord(t *testing.T) {
	con, gw := seededConsole(t, "a@x", "b@x")

	assert.NoError(t, con.Remove(context.Background(), "a@x"))
	assert.Equal(t, 1, con.View().Total)

	records, _ := gw.ListAll(context.Background())
	assert.Len(t, records, 1)
	assert.Equal(t, "b@x", records[0].Email)
}
