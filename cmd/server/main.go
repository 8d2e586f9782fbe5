package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/oscarvm/tpv-server/internal/api"
	"github.com/oscarvm/tpv-server/internal/cache"
	"github.com/oscarvm/tpv-server/internal/config"
	"github.com/oscarvm/tpv-server/internal/repository"
	"github.com/oscarvm/tpv-server/internal/service"
)

func main() {
	// Monetary values go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Product cache is optional; the server runs without Redis
	var products *cache.ProductCache
	if cfg.Redis.Addr != "" {
		products, err = cache.NewProductCache(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer products.Close()
	}

	// Create service
	svc, err := service.NewDefaultService(repo, products, cfg.Auth.JWTSecret, cfg.Auth.TerminalPIN)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
