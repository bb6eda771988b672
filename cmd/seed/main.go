package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/civicdesk/api/internal/config"
	"github.com/civicdesk/api/internal/database"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/service"
	"gorm.io/gorm"
)

var defaultDepartments = []model.Department{
	{Name: "Roads & Transport", Code: "ROADS", Description: "Potholes, traffic signals, road signs"},
	{Name: "Water & Sewage", Code: "WATER", Description: "Leaks, blocked drains, water quality"},
	{Name: "Sanitation", Code: "SANITATION", Description: "Garbage collection, illegal dumping"},
	{Name: "Street Lighting", Code: "LIGHTING", Description: "Broken or flickering street lights"},
	{Name: "Parks & Recreation", Code: "PARKS", Description: "Parks, playgrounds, public trees"},
}

func main() {
	filePath := flag.String("file", "", "Optional department list, one 'CODE|Name|Description' per line")
	adminEmail := flag.String("admin-email", os.Getenv("ADMIN_EMAIL"), "Email of the first admin")
	adminName := flag.String("admin-name", getenv("ADMIN_NAME", "Administrator"), "Display name of the first admin")
	adminPassword := flag.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "Password of the first admin")
	flag.Parse()

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	departments := defaultDepartments
	if *filePath != "" {
		departments, err = loadDepartments(*filePath)
		if err != nil {
			log.Fatalf("Failed to load department list: %v", err)
		}
	}

	inserted, skipped := seedDepartments(db, departments)
	log.Printf("Departments: inserted=%d, skipped=%d", inserted, skipped)

	if *adminEmail == "" {
		log.Println("No admin email given, skipping admin account")
		return
	}
	users := service.NewUserService(db, service.NewActivityService(db), cfg.JWTSecret)
	admin, created, err := users.EnsureAdmin(context.Background(), *adminEmail, *adminName, *adminPassword)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	if created {
		log.Printf("Created admin %s (id=%d)", admin.Email, admin.ID)
	} else {
		log.Printf("Admin %s already exists (id=%d)", admin.Email, admin.ID)
	}
}

func loadDepartments(path string) ([]model.Department, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var out []model.Department
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 2 {
			log.Printf("Skipping malformed line %q", line)
			continue
		}
		d := model.Department{
			Code: strings.ToUpper(strings.TrimSpace(parts[0])),
			Name: strings.TrimSpace(parts[1]),
		}
		if len(parts) == 3 {
			d.Description = strings.TrimSpace(parts[2])
		}
		out = append(out, d)
	}
	return out, scanner.Err()
}

func seedDepartments(db *gorm.DB, departments []model.Department) (inserted int, skipped int) {
	for _, d := range departments {
		var existing model.Department
		err := db.Where("code = ?", d.Code).First(&existing).Error
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error looking up department %s: %v", d.Code, err)
			skipped++
			continue
		}

		d.Active = true
		if err := db.Create(&d).Error; err != nil {
			log.Printf("Error inserting department %s: %v", d.Code, err)
			skipped++
			continue
		}
		inserted++
	}
	return inserted, skipped
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
