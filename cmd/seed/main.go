package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"adeptify/internal/auth"
	"adeptify/internal/config"
	"adeptify/internal/db"
	"adeptify/internal/model"
	"adeptify/internal/repository"
)

// SeedUserData is one administrator in the optional seed file.
type SeedUserData struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	CentreID  string `json:"centreId"`
	CursID    string `json:"cursId"`
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Session{}, &model.ActivityLog{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	users := []SeedUserData{{
		Email:     getEnv("SEED_ADMIN_EMAIL", "admin@adeptify.local"),
		Password:  getEnv("SEED_ADMIN_PASSWORD", "ChangeMe123!"),
		FirstName: "Super",
		LastName:  "Admin",
		Role:      string(model.RoleSuperAdmin),
	}}

	if path := os.Getenv("SEED_USERS_FILE"); path != "" {
		extra, err := readSeedFile(path)
		if err != nil {
			log.Fatalf("Failed to read seed file: %v", err)
		}
		log.Printf("Loaded %d users from %s", len(extra), path)
		users = append(users, extra...)
	}

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	repo := repository.NewUserRepository(gormDB)

	seeded, skipped, err := seedUsers(context.Background(), repo, hasher, users)
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Users upserted: %d", seeded)
	log.Printf("  - Invalid entries skipped: %d", skipped)
}

func readSeedFile(path string) ([]SeedUserData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	var users []SeedUserData
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return users, nil
}

// seedUsers creates or refreshes each administrator, keyed by email.
func seedUsers(ctx context.Context, repo repository.UserRepository, hasher *auth.PasswordHasher, users []SeedUserData) (seeded int, skipped int, err error) {
	for _, item := range users {
		role := model.Role(item.Role)
		email := strings.TrimSpace(item.Email)
		if email == "" || item.Password == "" || !role.Valid() {
			log.Printf("Skipping invalid seed entry %q (role %q)", item.Email, item.Role)
			skipped++
			continue
		}

		hash, err := hasher.Hash(item.Password)
		if err != nil {
			return seeded, skipped, fmt.Errorf("error hashing password for %s: %w", email, err)
		}

		user := &model.User{
			Email:        email,
			PasswordHash: hash,
			FirstName:    item.FirstName,
			LastName:     item.LastName,
			Role:         role,
			Status:       model.UserStatusActive,
			CentreID:     model.StringPtr(item.CentreID),
			CursID:       model.StringPtr(item.CursID),
		}
		if err := repo.Upsert(ctx, user); err != nil {
			return seeded, skipped, fmt.Errorf("error upserting user %s: %w", email, err)
		}
		seeded++
	}
	return seeded, skipped, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
