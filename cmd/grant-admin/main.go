// grant-admin bootstraps the first admin: it ensures an approval
// record exists for the given email, approves it, and grants the
// admin role. Later role changes happen in the admin console itself.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/crispchris33/security-advisor-chatbot/internal/config"
	"github.com/crispchris33/security-advisor-chatbot/internal/database"
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
	"github.com/crispchris33/security-advisor-chatbot/internal/store"
)

func main() {
	email := flag.String("email", "", "email address to grant the admin role")
	revoke := flag.Bool("revoke", false, "revoke the admin role instead of granting it")
	flag.Parse()

	if *email == "" {
		log.Fatal("usage: grant-admin -email user@example.com [-revoke]")
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" || cfg.DatabaseURL == "memory" {
		log.Fatal("grant-admin needs a Postgres database.url; the in-memory store has no other process to share with")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	gateway := store.NewPostgres(db, store.NewHub(), cfg.DefaultAllowance)
	ctx := context.Background()

	if *revoke {
		if err := gateway.SetAdminRole(ctx, *email, false); err != nil {
			log.Fatal("Failed to revoke admin role: ", err)
		}
		log.Printf("Revoked admin role for %s", *email)
		return
	}

	// Creates the record if this email has never signed in.
	if _, err := gateway.CheckApproval(ctx, *email); err != nil {
		log.Fatal("Failed to resolve approval record: ", err)
	}
	if err := gateway.SetStatus(ctx, *email, models.StatusApproved); err != nil {
		log.Fatal("Failed to approve user: ", err)
	}
	if err := gateway.SetAdminRole(ctx, *email, true); err != nil {
		log.Fatal("Failed to grant admin role: ", err)
	}

	log.Printf("Granted admin role to %s (status approved)", *email)
}
