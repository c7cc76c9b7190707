package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crispchris33/security-advisor-chatbot/internal/models"
	"github.com/crispchris33/security-advisor-chatbot/internal/session"
	"github.com/crispchris33/security-advisor-chatbot/internal/store"
)

func TestControllerStartsResolving(t *testing.T) {
	ctrl := session.NewController(store.NewMemory(5))
	assert.Equal(t, session.Resolving, ctrl.State().Phase)
}

func TestSignInResolvesPending(t *testing.T) {
	gw := store.NewMemory(5)
	ctrl := session.NewController(gw)
	defer ctrl.Close()

	err := ctrl.OnIdentity(context.Background(), &session.Identity{Email: "a@example.com", DisplayName: "A"})
	assert.NoError(t, err)

	st := ctrl.State()
	assert.Equal(t, session.SignedIn, st.Phase)
	assert.Equal(t, models.StatusPending, st.Status)
	assert.False(t, st.IsAdmin)
	assert.Equal(t, "A", st.DisplayName)
}

func TestPushedUpdatesOverwriteLookup(t *testing.T) {
	gw := store.NewMemory(5)
	ctrl := session.NewController(gw)
	defer ctrl.Close()

	ctx := context.Background()
	assert.NoError(t, ctrl.OnIdentity(ctx, &session.Identity{Email: "a@example.com"}))

	assert.NoError(t, gw.SetStatus(ctx, "a@example.com", models.StatusApproved))
	assert.Equal(t, models.StatusApproved, ctrl.State().Status)

	assert.NoError(t, gw.SetAdminRole(ctx, "a@example.com", true))
	assert.True(t, ctrl.State().IsAdmin)

	assert.NoError(t, gw.SetStatus(ctx, "a@example.com", models.StatusDisabled))
	assert.Equal(t, models.StatusDisabled, ctrl.State().Status)
}

func TestIdentityWithoutEmail(t *testing.T) {
	gw := store.NewMemory(5)
	ctrl := session.NewController(gw)
	defer ctrl.Close()

	ctx := context.Background()
	assert.NoError(t, ctrl.OnIdentity(ctx, &session.Identity{DisplayName: "ghosty"}))

	st := ctrl.State()
	assert.Equal(t, session.SignedIn, st.Phase)
	assert.Equal(t, models.StatusNone, st.Status)
	assert.False(t, st.IsAdmin)

	// No key, no record, no subscription.
	records, _ := gw.ListAll(ctx)
	assert.Empty(t, records)
}

func TestSignOutTearsDownSubscription(t *testing.T) {
	gw := store.NewMemory(5)
	ctrl := session.NewController(gw)

	ctx := context.Background()
	assert.NoError(t, ctrl.OnIdentity(ctx, &session.Identity{Email: "a@example.com"}))

	ctrl.SignOut()
	assert.Equal(t, session.SignedOut, ctrl.State().Phase)

	// A mutation after sign-out must not leak into the dead session.
	assert.NoError(t, gw.SetStatus(ctx, "a@example.com", models.StatusApproved))
	assert.Equal(t, session.SignedOut, ctrl.State().Phase)
	assert.Equal(t, models.Status(""), ctrl.State().Status)
}

func TestSignOutSignInCycle(t *testing.T) {
	gw := store.NewMemory(5)
	ctrl := session.NewController(gw)
	defer ctrl.Close()

	ctx := context.Background()
	assert.NoError(t, ctrl.OnIdentity(ctx, &session.Identity{Email: "a@example.com"}))
	ctrl.SignOut()
	assert.NoError(t, ctrl.OnIdentity(ctx, &session.Identity{Email: "b@example.com"}))

	// Only the live session's key moves the state.
	assert.NoError(t, gw.SetStatus(ctx, "a@example.com", models.StatusApproved))
	assert.Equal(t, models.StatusPending, ctrl.State().Status)

	assert.NoError(t, gw.SetStatus(ctx, "b@example.com", models.StatusApproved))
	assert.Equal(t, models.StatusApproved, ctrl.State().Status)
}

func TestNilIdentitySignsOut(t *testing.T) {
	gw := store.NewMemory(5)
	ctrl := session.NewController(gw)
	defer ctrl.Close()

	assert.NoError(t, ctrl.OnIdentity(context.Background(), nil))
	assert.Equal(t, session.SignedOut, ctrl.State().Phase)
}

func TestUpdatesCoalesceToLatest(t *testing.T) {
	gw := store.NewMemory(5)
	ctrl := session.NewController(gw)
	defer ctrl.Close()

	ctx := context.Background()
	assert.NoError(t, ctrl.OnIdentity(ctx, &session.Identity{Email: "a@example.com"}))
	assert.NoError(t, gw.SetStatus(ctx, "a@example.com", models.StatusApproved))
	assert.NoError(t, gw.SetStatus(ctx, "a@example.com", models.StatusDisabled))

	// A slow reader sees only the newest state.
	st := <-ctrl.Updates()
	assert.Equal(t, models.StatusDisabled, st.Status)
	select {
	case st := <-ctrl.Updates():
		t.Fatalf("unexpected second buffered update: %+v", st)
	default:
	}
}

// failingGateway makes every store call fail, for the fail-closed path.
type failingGateway struct{}

var errStoreDown = errors.New("store down")

func (failingGateway) CheckApproval(context.Context, string) (store.Approval, error) {
	return store.Approval{Status: models.StatusNone}, errStoreDown
}

func (failingGateway) ListAll(context.Context) ([]models.ApprovalRecord, error) {
	return nil, errStoreDown
}

func (failingGateway) SetStatus(context.Context, string, models.Status) error { return errStoreDown }
func (failingGateway) SetAdminRole(context.Context, string, bool) error       { return errStoreDown }
func (failingGateway) SetChatAllowance(context.Context, string, int) error    { return errStoreDown }
func (failingGateway) Remove(context.Context, string) error                   { return errStoreDown }

func (failingGateway) Subscribe(string, func(models.ApprovalRecord)) (func(), error) {
	return nil, errStoreDown
}

func TestLookupFailureFailsClosed(t *testing.T) {
	ctrl := session.NewController(failingGateway{})
	defer ctrl.Close()

	err := ctrl.OnIdentity(context.Background(), &session.Identity{Email: "a@example.com"})
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, session.SignedOut, ctrl.State().Phase)
}
