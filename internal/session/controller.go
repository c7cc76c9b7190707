// Package session tracks one signed-in browser session's approval
// state. A Controller owns at most one live store subscription,
// acquired when an identity with an email resolves and released on
// sign-out, identity change, or Close.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/crispchris33/security-advisor-chatbot/internal/models"
	"github.com/crispchris33/security-advisor-chatbot/internal/store"
)

type Phase int

const (
	SignedOut Phase = iota
	Resolving
	SignedIn
)

func (p Phase) String() string {
	switch p {
	case SignedOut:
		return "signed_out"
	case Resolving:
		return "resolving"
	case SignedIn:
		return "signed_in"
	}
	return "unknown"
}

// Identity is what the OAuth provider hands back. Email may be empty.
type Identity struct {
	Email       string
	DisplayName string
}

type State struct {
	Phase       Phase
	Email       string
	DisplayName string
	Status      models.Status
	IsAdmin     bool
}

type Controller struct {
	gw store.Gateway

	mu      sync.Mutex
	state   State
	cancel  func()
	updates chan State
}

func NewController(gw store.Gateway) *Controller {
	return &Controller{
		gw:      gw,
		state:   State{Phase: Resolving},
		updates: make(chan State, 1),
	}
}

// OnIdentity drives the state machine from an identity-provider event.
// nil means "no user". An identity without an email lands in the
// degenerate signed-in state with status none and no subscription.
// A store failure during lookup fails closed: the controller returns
// to SignedOut and the error propagates.
func (c *Controller) OnIdentity(ctx context.Context, ident *Identity) error {
	c.release()

	if ident == nil {
		c.set(State{Phase: SignedOut})
		return nil
	}
	if ident.Email == "" {
		c.set(State{Phase: SignedIn, DisplayName: ident.DisplayName, Status: models.StatusNone})
		return nil
	}

	c.set(State{Phase: Resolving, Email: ident.Email, DisplayName: ident.DisplayName})

	result, err := c.gw.CheckApproval(ctx, ident.Email)
	if err != nil {
		c.set(State{Phase: SignedOut})
		return err
	}

	c.set(State{
		Phase:       SignedIn,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		Status:      result.Status,
		IsAdmin:     result.IsAdmin,
	})

	// Pushed updates overwrite the lookup result from here on; the
	// subscription is the source of truth for the rest of the session.
	cancel, err := c.gw.Subscribe(ident.Email, c.onPush)
	if err != nil {
		log.Printf("WARN: subscription for %s unavailable, session will not see live updates: %v", ident.Email, err)
		return nil
	}

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	return nil
}

// SignOut resets immediately; the identity provider's own sign-out
// round trip happens at the HTTP layer.
func (c *Controller) SignOut() {
	c.release()
	c.set(State{Phase: SignedOut})
}

// Close releases the subscription without touching state. The owner
// must call it on teardown so no listener outlives its session.
func (c *Controller) Close() {
	c.release()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Updates yields state changes, coalesced: a slow reader sees only
// the most recent state.
func (c *Controller) Updates() <-chan State {
	return c.updates
}

func (c *Controller) onPush(rec models.ApprovalRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != SignedIn || c.state.Email != rec.Email {
		return
	}
	status := rec.Status
	if !status.Valid() {
		status = models.StatusPending
	}
	c.state.Status = status
	c.state.IsAdmin = rec.IsAdmin
	c.notifyLocked()
}

func (c *Controller) set(st State) {
	c.mu.Lock()
	c.state = st
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Controller) notifyLocked() {
	select {
	case c.updates <- c.state:
	default:
		select {
		case <-c.updates:
		default:
		}
		c.updates <- c.state
	}
}

// release swaps the cancel func out under the lock but invokes it
// outside: the hub serializes delivery against cancellation, and a
// delivery in flight takes c.mu in onPush.
func (c *Controller) release() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
