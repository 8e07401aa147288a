package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/sape-server/config"
	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/pkg/helpers"
)

type seedUser struct {
	username string
	email    string
	name     string
	roles    []string
}

var users = []seedUser{
	{username: "admin", email: "admin@sape.local", name: "Administrator", roles: []string{entity.RoleAdmin, entity.RoleUser}},
	{username: "operator", email: "operator@sape.local", name: "Operator", roles: []string{entity.RoleUser}},
}

func main() {
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "password123"
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	// Ensure base roles exist
	roleIDs := map[string]int64{}
	for _, role := range []string{entity.RoleAdmin, entity.RoleUser} {
		var id int64
		if err := db.QueryRow(`
			INSERT INTO roles (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET updated_at = now()
			RETURNING id
		`, role).Scan(&id); err != nil {
			log.Fatalf("failed to upsert role %s: %v", role, err)
		}
		roleIDs[role] = id
	}
	fmt.Printf("roles ensured: %v\n", roleIDs)

	for _, u := range users {
		var id int64
		err = db.QueryRow(`
			INSERT INTO users (username, email, name, password_hash)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (username) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = now()
			RETURNING id
		`, u.username, u.email, u.name, hash).Scan(&id)
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", u.username, err)
		}
		for _, role := range u.roles {
			if _, err := db.Exec(`
				INSERT INTO user_roles (user_id, role_id)
				VALUES ($1, $2)
				ON CONFLICT (user_id, role_id) DO NOTHING
			`, id, roleIDs[role]); err != nil {
				log.Fatalf("failed to assign role %s to %s: %v", role, u.username, err)
			}
		}
		fmt.Printf("seeded user: id=%d username=%s roles=%v\n", id, u.username, u.roles)
	}

	if err := seedSample(db); err != nil {
		log.Fatalf("failed to seed sample data: %v", err)
	}
}

// seedSample adds one person registered for one event, once.
func seedSample(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT count(*) FROM persons`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		fmt.Println("sample data present, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var personID, eventID int64
	if err := tx.QueryRow(`
		INSERT INTO persons (name, email, document) VALUES ($1, $2, $3) RETURNING id
	`, "Ana Souza", "ana@example.com", "123.456.789-00").Scan(&personID); err != nil {
		return err
	}
	if err := tx.QueryRow(`
		INSERT INTO events (name, description, location, starts_at)
		VALUES ($1, $2, $3, now() + interval '7 days') RETURNING id
	`, "Community Meetup", "Monthly meetup", "Main Hall").Scan(&eventID); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO entries (person_id, event_id, notes) VALUES ($1, $2, $3)
	`, personID, eventID, "seeded"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	fmt.Printf("seeded sample: person=%d event=%d\n", personID, eventID)
	return nil
}
