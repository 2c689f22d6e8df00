package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gatehouse-io/gatehouse/internal/api"
	"github.com/gatehouse-io/gatehouse/internal/api/handlers"
	"github.com/gatehouse-io/gatehouse/internal/auth"
	"github.com/gatehouse-io/gatehouse/internal/config"
	"github.com/gatehouse-io/gatehouse/internal/database"
	"github.com/gatehouse-io/gatehouse/internal/logger"
	"github.com/gatehouse-io/gatehouse/internal/mailer"
	"github.com/gatehouse-io/gatehouse/internal/monitoring"
	"github.com/gatehouse-io/gatehouse/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up the outbound mail transport
	mail, err := mailer.New(cfg.Mail)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize mailer")
	}

	// Set up services
	tokens := auth.NewTokenService(cfg.JWTSecret)
	userStore := services.NewUserStore(db)
	authService := services.NewAuthService(userStore, tokens, mail, cfg.BaseURL)

	// Set up and run the background reset-token janitor
	janitor := monitoring.NewJanitor(userStore)
	if err := janitor.Run(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start reset-token janitor")
	}

	// Set up router
	authHandler := handlers.NewAuthHandler(authService, cfg.IsProduction())
	router := api.NewRouter(authHandler, tokens, cfg.ClientURL)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
