package main

import (
	"fmt"
	"log"
	"os"

	"github.com/argus-sec/argus/backend/internal/config"
	"github.com/argus-sec/argus/backend/internal/database"
	"github.com/argus-sec/argus/backend/internal/models"
	"github.com/argus-sec/argus/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.WafEvent{},
		&models.BlockedIP{},
		&models.AutoBlockPolicy{},
		&models.Notification{},
		&models.NotificationProvider{},
		&models.User{},
	); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	fmt.Println("✓ Database migrated successfully")

	// Default auto-block policy so ingestion works out of the box.
	policy := models.AutoBlockPolicy{
		OrganizationID:     models.DefaultOrganizationID,
		Enabled:            true,
		Threshold:          cfg.AutoBlockThreshold,
		BlockDurationHours: cfg.AutoBlockDurationHours,
		WindowMinutes:      cfg.AutoBlockWindowMinutes,
		IPSetName:          cfg.IPSetName,
		Scope:              cfg.IPSetScope,
	}
	result := db.Where("organization_id = ?", policy.OrganizationID).FirstOrCreate(&policy)
	if result.Error != nil {
		log.Printf("Failed to seed default policy: %v", result.Error)
	} else if result.RowsAffected > 0 {
		fmt.Printf("✓ Created default auto-block policy (threshold=%d, window=%dm, duration=%dh)\n",
			policy.Threshold, policy.WindowMinutes, policy.BlockDurationHours)
	} else {
		fmt.Println("  Default auto-block policy already exists")
	}

	adminEmail := os.Getenv("ARGUS_DEFAULT_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@localhost"
	}
	adminPassword := os.Getenv("ARGUS_DEFAULT_ADMIN_PASSWORD")
	if adminPassword == "" {
		fmt.Println("  ARGUS_DEFAULT_ADMIN_PASSWORD not set, skipping admin user")
		fmt.Println("\n✓ Database seeding completed successfully!")
		return
	}

	var existing models.User
	if err := db.Where("email = ?", adminEmail).First(&existing).Error; err == nil {
		fmt.Printf("  User already exists: %s\n", existing.Email)
	} else {
		auth := services.NewAuthService(db, cfg.JWTSecret)
		if _, err := auth.CreateUser(adminEmail, adminPassword, "Administrator", "admin"); err != nil {
			log.Printf("Failed to seed admin user: %v", err)
		} else {
			fmt.Printf("✓ Created default admin user: %s\n", adminEmail)
		}
	}

	fmt.Println("\n✓ Database seeding completed successfully!")
}
