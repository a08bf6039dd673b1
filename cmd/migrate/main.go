package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var (
		logLevel string
		name     string
		email    string
		password string
	)

	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&name, "name", "Administrator", "Display name for create-admin")
	flag.StringVar(&email, "email", "", "Email for create-admin")
	flag.StringVar(&password, "password", "", "Password for create-admin (defaults to $CRM_ADMIN_PASSWORD)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stdout"}, cfg.App.Env)
	defer func() {
		_ = log.Sync()
	}()

	db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	roles := persistence.NewGormRoleRepository(db.DB, persistence.NewGormRawExecutor(db.DB))

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("driver", cfg.Database.Driver),
	)

	switch command {
	case "up":
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}
		if err := roles.SeedRoles(ctx); err != nil {
			log.Fatal("Seeding roles failed", zap.Error(err))
		}
		log.Info("Schema is up to date")

	case "create-admin":
		if password == "" {
			password = os.Getenv("CRM_ADMIN_PASSWORD")
		}
		if email == "" || password == "" {
			log.Fatal("create-admin requires -email and -password")
		}
		id, err := createAdmin(ctx, db, name, email, password)
		if err != nil {
			log.Fatal("Failed to create administrator", zap.Error(err))
		}
		log.Info("Administrator created", zap.Int64("user_id", id), zap.String("email", email))

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// createAdmin inserts a root super admin so the first login is possible
func createAdmin(ctx context.Context, db *persistence.Database, name, email, password string) (int64, error) {
	users := persistence.NewGormUserRepository(db.DB)
	exists, err := users.ExistsByEmail(ctx, identity.NormalizeEmail(email), 0)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("a user with email %s already exists", email)
	}

	user, err := identity.NewUser(name, email, identity.RankSuperAdmin, nil)
	if err != nil {
		return 0, err
	}
	user.PasswordHash, err = auth.NewPasswordHasher(auth.DefaultArgon2Params).Hash(password)
	if err != nil {
		return 0, err
	}
	if err := users.Create(ctx, user); err != nil {
		return 0, err
	}
	return user.ID, nil
}

func printUsage() {
	fmt.Println(`CRM Database Migration Tool

Usage:
  migrate [flags] <command>

Commands:
  up             Create or update tables and seed the built-in roles
  create-admin   Insert a super admin (-email, -password, -name)

Flags:
  -log-level string   Log level (debug, info, warn, error) (default "info")

Environment:
  Database settings are read from config.toml and CRM_DATABASE_* variables.`)
}
