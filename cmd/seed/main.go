package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/davitrie/userbase/config"
	"github.com/davitrie/userbase/internal/domain/entity"
	pginfra "github.com/davitrie/userbase/internal/infrastructure/postgres"
)

// Seeds a handful of development users across the three roles.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := pginfra.NewUserRepository(pool)

	fixtures := []struct {
		email string
		name  string
		role  entity.Role
	}{
		{"admin@example.com", "Admin", entity.RoleAdmin},
		{"moderator@example.com", "Moderator", entity.RoleModerator},
		{"alice@example.com", "Alice", entity.RoleUser},
		{"bob@example.com", "Bob", entity.RoleUser},
	}

	for _, f := range fixtures {
		existing, err := repo.FindByEmail(ctx, f.email)
		if err != nil {
			log.Fatalf("lookup %s: %v", f.email, err)
		}
		if existing != nil {
			fmt.Printf("exists: %s (%s)\n", f.email, existing.ID)
			continue
		}
		name := f.name
		u, err := entity.NewUser(f.email, &name, f.role)
		if err != nil {
			log.Fatalf("build %s: %v", f.email, err)
		}
		if err := repo.Save(ctx, u); err != nil {
			log.Fatalf("save %s: %v", f.email, err)
		}
		fmt.Printf("seeded: %s role=%s id=%s\n", u.Email, u.Role, u.ID)
	}
}
