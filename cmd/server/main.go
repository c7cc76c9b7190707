package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/crispchris33/security-advisor-chatbot/internal/admin"
	"github.com/crispchris33/security-advisor-chatbot/internal/auth"
	"github.com/crispchris33/security-advisor-chatbot/internal/config"
	"github.com/crispchris33/security-advisor-chatbot/internal/database"
	"github.com/crispchris33/security-advisor-chatbot/internal/signal"
	"github.com/crispchris33/security-advisor-chatbot/internal/store"
)

func main() {
	cfg := config.Load()

	gateway, cleanup := buildGateway(cfg)
	defer cleanup()

	refresh := signal.NewBroadcaster()
	authService := auth.NewService(gateway, refresh, cfg)
	adminHandler := admin.NewHandler(gateway, refresh)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	setupCORS(router)
	authService.RegisterRoutes(router)
	adminHandler.RegisterRoutes(router, authService.RequireAdmin())
	router.Static("/static", cfg.StaticDir)

	log.Printf("Server starting on %s:%s", cfg.Host, cfg.Port)
	log.Fatal(router.Run(cfg.Host + ":" + cfg.Port))
}

// buildGateway picks the store backend from the DSN: "memory" (or
// empty) runs everything in process, anything else is Postgres with
// the NOTIFY listener bridging out-of-process writes into the hub.
func buildGateway(cfg config.Config) (store.Gateway, func()) {
	if cfg.DatabaseURL == "" || cfg.DatabaseURL == "memory" {
		log.Println("WARN: using in-memory store; approval records will not survive a restart")
		return store.NewMemory(cfg.DefaultAllowance), func() {}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	hub := store.NewHub()
	listener, err := store.StartListener(cfg.DatabaseURL, db, hub)
	if err != nil {
		log.Fatal("Failed to start update listener: ", err)
	}

	gateway := store.NewPostgres(db, hub, cfg.DefaultAllowance)
	return gateway, func() {
		listener.Close()
		db.Close()
	}
}

func setupCORS(router *gin.Engine) {
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
}
