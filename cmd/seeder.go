package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/auth"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const seedPassword = "password123"

type seedUser struct {
	Email    string
	FullName string
	Role     internal.Role
}

var seedUsers = []seedUser{
	{"admin@company.com", "Ayu Admin", internal.RoleAdmin},
	{"hr@company.com", "Hendra HR", internal.RoleHR},
	{"employee@company.com", "Eka Employee", internal.RoleEmployee},
}

// seeded tables in delete order
var seedTables = []string{"notifications", "work_logs", "room_members", "chat_rooms", "documents", "leave_requests", "user_roles", "profiles"}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with one admin, one hr and one employee account plus a sample work-log room.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range seedTables {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := auth.HashPassword(seedPassword, cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		ids := make(map[internal.Role]string, len(seedUsers))
		for _, u := range seedUsers {
			id, err := ensureUser(db, u, hash)
			if err != nil {
				log.Fatalf("failed to seed %s: %v", u.Email, err)
			}
			ids[u.Role] = id
		}

		var exists int
		if err := db.Raw("SELECT 1 FROM chat_rooms WHERE room_code = ?", "TEAM01").Row().Scan(&exists); err != nil {
			roomID := uuid.NewString()
			now := time.Now().UTC()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Exec("INSERT INTO chat_rooms (id, name, room_code, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
					roomID, "General", "TEAM01", ids[internal.RoleHR], now).Error; err != nil {
					return err
				}
				for _, role := range []internal.Role{internal.RoleHR, internal.RoleEmployee} {
					if err := tx.Exec("INSERT INTO room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)", roomID, ids[role], now).Error; err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				log.Fatalf("failed to seed room: %v", err)
			}
			fmt.Println("Seeded room General with code TEAM01")
		}

		fmt.Printf("Seed complete; every account uses password %q\n", seedPassword)
	},
}

// ensureUser inserts the profile and role if the email is new and returns the user id.
func ensureUser(db *gorm.DB, u seedUser, hash string) (string, error) {
	var id string
	if err := db.Raw("SELECT id FROM profiles WHERE LOWER(email) = LOWER(?)", u.Email).Row().Scan(&id); err == nil {
		fmt.Println("user already exists:", u.Email)
		return id, nil
	}

	id = uuid.NewString()
	now := time.Now().UTC()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO profiles (id, email, full_name, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, ?, ?)",
			id, u.Email, u.FullName, hash, now, now).Error; err != nil {
			return err
		}
		return tx.Exec("INSERT INTO user_roles (id, user_id, role, created_at) VALUES (?, ?, ?, ?)",
			uuid.NewString(), id, string(u.Role), now).Error
	})
	if err != nil {
		return "", err
	}

	fmt.Printf("Seeded %s user: %s\n", u.Role, u.Email)
	return id, nil
}
