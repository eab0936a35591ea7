package main

import (
	"context"
	"flag"
	"log"
	"time"

	"h1nted/internal/auth"
	"h1nted/internal/config"
	"h1nted/internal/repository/postgres"
	"h1nted/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only run migrations, don't seed data")
	clearData := flag.Bool("clear-data", false, "Clear the test user's rows (keep schema)")
	deleteUser := flag.Bool("delete-user", false, "Clear the test user's rows and delete the auth user")
	email := flag.String("email", "test@h1nted.dev", "Test user email")
	password := flag.String("password", "test-password-123", "Test user password (only used when creating)")
	profileID := flag.String("profile", "seed-profile", "Profile id for the sample chat history")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.IsProduction() && (*dropTables || *clearData || *deleteUser) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables, --clear-data or --delete-user) in production environment")
	}

	logger := config.NewLogger(cfg.Environment, nil)
	log.Printf("🌱 Seeding database (environment: %s)", cfg.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := postgres.DropMigrations(cfg.SupabaseDBURL, logger); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.RunMigrations(cfg.SupabaseDBURL, logger); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
	userID, err := admin.EnsureUser(ctx, *email, *password)
	if err != nil {
		log.Fatalf("Failed to ensure test user: %v", err)
	}
	log.Printf("👤 Test user %s (ID: %s)", *email, userID)

	seeder := seed.NewReportSeeder(pool, &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(),
		Logger: logger,
	}, logger)

	if *deleteUser {
		log.Println("🧹 Clearing test user data...")
		if err := seeder.ClearUserData(ctx, userID); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		if err := admin.DeleteUserByEmail(ctx, *email); err != nil {
			log.Fatalf("Failed to delete test user: %v", err)
		}
		log.Printf("✅ Deleted test user %s", *email)
		return
	}

	if *clearData {
		log.Println("🧹 Clearing test user data...")
		if err := seeder.ClearUserData(ctx, userID); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	ids, err := seeder.SeedReports(ctx, userID)
	if err != nil {
		log.Fatalf("Failed to seed reports: %v", err)
	}
	log.Printf("✅ Seeded %d saved reports", len(ids))

	if err := seeder.SeedHistory(ctx, userID, *profileID); err != nil {
		log.Fatalf("Failed to seed chat history: %v", err)
	}
	log.Printf("✅ Seeded chat history for profile %s", *profileID)

	log.Println("🎉 Seeding complete!")
}
