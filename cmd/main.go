// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/dsnpru/activityreg/internal/auth"
	"github.com/dsnpru/activityreg/internal/config"
	"github.com/dsnpru/activityreg/internal/database"
	"github.com/dsnpru/activityreg/internal/handler"
	"github.com/dsnpru/activityreg/internal/repository"
	"github.com/dsnpru/activityreg/internal/service"
)

func main() {
	ctx := context.Background()

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("✓ Loaded .env")
	}
	cfg := config.New()

	// ── 1. Connect to PostgreSQL and migrate ─────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	log.Println("✓ Connected to PostgreSQL")

	if err := database.Migrate(cfg.Database); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("✓ Schema up to date")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	// Seed the default admin on first run.
	hash, err := auth.HashPassword(cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatalf("hash default admin password: %v", err)
	}
	if err := adminRepo.EnsureDefault(ctx, cfg.Auth.AdminUsername, hash); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	store := service.NewStore(pool)

	regSvc := service.NewRegistrationService(store, auditRepo)
	activitySvc := service.NewActivityService(activityRepo, groupRepo, regRepo)
	studentSvc := service.NewStudentService(studentRepo)
	adminSvc := service.NewAdminService(adminRepo, studentRepo, activityRepo, regRepo, auditRepo, tokens)

	publicHandler := handler.NewPublicHandler(regSvc, activitySvc, studentSvc)
	adminHandler := handler.NewAdminHandler(adminSvc, activitySvc, studentSvc, regRepo)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)          // structured access log
	r.Use(handler.CORS)            // frontend may be served separately

	// Health
	r.Get("/health", handler.HealthCheck)

	// Public API
	r.Route("/api", func(r chi.Router) {
		r.Get("/activities", publicHandler.ListActivities)
		r.Get("/search_students", publicHandler.SearchStudents)
		r.Post("/register", publicHandler.Register)
	})

	// Admin API
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", adminHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(handler.RequireAdmin(adminSvc))

			r.Post("/activities", adminHandler.CreateActivity)
			r.Get("/activities", adminHandler.ListActivities)
			r.Put("/activities/{id}", adminHandler.UpdateActivity)
			r.Post("/activities/{id}/toggle", adminHandler.ToggleActivity)
			r.Delete("/activities/{id}", adminHandler.DeleteActivity)
			r.Get("/activities/{id}/registrations", adminHandler.ListRegistrations)
			r.Delete("/registrations/{id}", adminHandler.DeleteRegistration)

			r.Post("/groups", adminHandler.CreateGroup)
			r.Get("/groups", adminHandler.ListGroups)
			r.Put("/groups/{id}", adminHandler.UpdateGroup)
			r.Delete("/groups/{id}", adminHandler.DeleteGroup)

			r.Get("/students", adminHandler.ListStudents)
			r.Put("/students/{id}", adminHandler.UpdateStudent)
			r.Delete("/students/{id}", adminHandler.DeleteStudent)
			r.Post("/import_students", adminHandler.ImportStudents)

			r.Get("/dashboard", adminHandler.Dashboard)
			r.Get("/logs", adminHandler.AuditLog)
			r.Get("/export/excel", adminHandler.ExportRegistrations)
		})
	})

	// Static HTML – serve the web/ directory at the root.
	webFS := http.Dir("./web")
	r.Handle("/*", http.FileServer(webFS))

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("✓ Server listening on http://localhost:%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
