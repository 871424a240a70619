package database

import (
	"fmt"
	"log"
	"os"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/auth"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// RunSeeds migrates and seeds the database
func RunSeeds(db *gorm.DB) error {
	return NewSeeder(db).SeedAll()
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	if err := s.SeedAdminAgent(); err != nil {
		return fmt.Errorf("failed to seed admin agent: %w", err)
	}

	if err := s.SeedUniversities(); err != nil {
		return fmt.Errorf("failed to seed universities: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedAdminAgent creates the default admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD. Skipped when an admin already exists or the variables are
// unset.
func (s *Seeder) SeedAdminAgent() error {
	var count int64
	if err := s.db.Model(&model.Agent{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Admin agent already exists, skipping...")
		return nil
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Println("⚠️  ADMIN_EMAIL and ADMIN_PASSWORD environment variables not set, skipping admin creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.Agent{
		FirstName:       "System",
		LastName:        "Administrator",
		Email:           adminEmail,
		PasswordHash:    passwordHash,
		Role:            "admin",
		IsActive:        true,
		ConsentAccepted: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Created admin agent: %s", adminEmail)
	return nil
}

// SeedUniversities loads the initial partner institution catalog
func (s *Seeder) SeedUniversities() error {
	var count int64
	if err := s.db.Model(&model.University{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Universities already seeded, skipping...")
		return nil
	}

	universities := []model.University{
		{Name: "University of Toronto", Code: "UOFT", Country: "Canada", City: "Toronto", Website: "https://www.utoronto.ca", IsActive: true},
		{Name: "University of British Columbia", Code: "UBC", Country: "Canada", City: "Vancouver", Website: "https://www.ubc.ca", IsActive: true},
		{Name: "University of Melbourne", Code: "UNIMELB", Country: "Australia", City: "Melbourne", Website: "https://www.unimelb.edu.au", IsActive: true},
		{Name: "University of Sydney", Code: "USYD", Country: "Australia", City: "Sydney", Website: "https://www.sydney.edu.au", IsActive: true},
		{Name: "University of Manchester", Code: "MANCHESTER", Country: "United Kingdom", City: "Manchester", Website: "https://www.manchester.ac.uk", IsActive: true},
		{Name: "Technical University of Munich", Code: "TUM", Country: "Germany", City: "Munich", Website: "https://www.tum.de", IsActive: true},
	}

	if err := s.db.Create(&universities).Error; err != nil {
		return err
	}

	log.Printf("✅ Seeded %d universities", len(universities))
	return nil
}
