//go:build ignore

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/hugh/campuschat/internal/auth"
	"github.com/hugh/campuschat/internal/database"
	"github.com/hugh/campuschat/internal/tenant"
	"github.com/hugh/campuschat/pkg/config"
	"github.com/hugh/campuschat/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry(), cfg.JWT.RefreshExpiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	tenantName := os.Getenv("TENANT_NAME")

	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "Admin123!"
	}
	if tenantName == "" {
		tenantName = "Demo Campus"
	}

	ctx := context.Background()

	resp, err := authService.Signup(ctx, auth.SignupInput{
		Email:    email,
		Password: password,
	})
	if err != nil {
		if err == auth.ErrUserExists {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	// Create the demo tenant with the admin as its first member. Invite
	// emails are not wanted here, so the service runs without a queue.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	tenantService := tenant.NewService(db, quiet, nil)

	tn, err := tenantService.Select(ctx, resp.User.ID, tenant.SelectInput{Name: tenantName})
	if err != nil {
		log.Fatalf("failed to create tenant: %v", err)
	}

	fmt.Printf("Seeded admin %s (username %s) in tenant %q (%s)\n",
		email, resp.User.Username, tn.Name, tn.ID)
}
