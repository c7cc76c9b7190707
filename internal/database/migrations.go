package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Migrate(db *sqlx.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		email VARCHAR(255) PRIMARY KEY,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		chat_allowance INTEGER NOT NULL DEFAULT 5 CHECK (chat_allowance >= 0),
		date_created TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_accessed TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_status ON users(status);

	CREATE OR REPLACE FUNCTION notify_user_change() RETURNS TRIGGER AS $$
	BEGIN
		IF TG_OP = 'DELETE' THEN
			PERFORM pg_notify('user_updates', OLD.email);
			RETURN OLD;
		END IF;
		PERFORM pg_notify('user_updates', NEW.email);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;

	DROP TRIGGER IF EXISTS users_notify_change ON users;
	CREATE TRIGGER users_notify_change
		AFTER INSERT OR UPDATE OR DELETE ON users
		FOR EACH ROW EXECUTE PROCEDURE notify_user_change();
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
