// Package view maps session state to a view selection. Pure: the
// HTTP layer renders whatever Select says, nothing here touches the
// store.
package view

import (
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
	"github.com/crispchris33/security-advisor-chatbot/internal/session"
)

type Page int

const (
	PageLogin Page = iota
	PageLoading
	PagePortfolio
)

type ChatPanel int

const (
	// ChatLocked shows the "contact an admin" message (pending).
	ChatLocked ChatPanel = iota
	// ChatActive exposes the chat.
	ChatActive
	// ChatNoAccess covers disabled and no-usable-identity sessions.
	ChatNoAccess
)

type Selection struct {
	Page        Page
	Chat        ChatPanel
	ShowAdmin   bool
	DisplayName string
}

func Select(st session.State) Selection {
	switch st.Phase {
	case session.SignedOut:
		return Selection{Page: PageLogin}
	case session.Resolving:
		return Selection{Page: PageLoading}
	}

	sel := Selection{
		Page:        PagePortfolio,
		ShowAdmin:   st.IsAdmin,
		DisplayName: st.DisplayName,
	}
	switch st.Status {
	case models.StatusApproved:
		sel.Chat = ChatActive
	case models.StatusPending:
		sel.Chat = ChatLocked
	default:
		sel.Chat = ChatNoAccess
	}
	return sel
}
