package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/crispchris33/security-advisor-chatbot/internal/constants"
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
)

// Listener bridges Postgres NOTIFY into the hub so approval changes
// written by another process (a second server instance, the
// grant-admin tool, psql) still reach subscribed sessions. The
// migration installs a trigger that notifies the user's email on
// every insert, update, and delete.
type Listener struct {
	db  *sqlx.DB
	hub *Hub
	pl  *pq.Listener
}

func StartListener(databaseURL string, db *sqlx.DB, hub *Hub) (*Listener, error) {
	pl := pq.NewListener(databaseURL, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("WARN: store listener event %d: %v", ev, err)
			}
		})

	if err := pl.Listen(constants.UpdatesChannel); err != nil {
		pl.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", constants.UpdatesChannel, err)
	}

	l := &Listener{db: db, hub: hub, pl: pl}
	go l.run()
	return l, nil
}

func (l *Listener) run() {
	for n := range l.pl.Notify {
		if n == nil {
			// Reconnect marker: notifications may have been missed,
			// but subscribers re-resolve on the next refresh signal.
			continue
		}
		l.dispatch(n.Extra)
	}
}

func (l *Listener) dispatch(email string) {
	if email == "" {
		return
	}
	var rec models.ApprovalRecord
	err := l.db.Get(&rec, "SELECT "+recordColumns+" FROM users WHERE email = $1", email)
	if err == sql.ErrNoRows {
		// Deleted record: nothing to redeliver.
		return
	}
	if err != nil {
		log.Printf("WARN: failed to fetch %s after notify: %v", email, err)
		return
	}
	l.hub.Publish(rec.Email, rec)
}

func (l *Listener) Close() error {
	return l.pl.Close()
}
