// Package testutil provides a migrated in-memory database and fixtures for
// package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/civicdesk/api/internal/database"
	"github.com/civicdesk/api/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// MustDepartment inserts an active department.
func MustDepartment(t *testing.T, db *gorm.DB, name string) model.Department {
	t.Helper()
	d := model.Department{Name: name, Code: fmt.Sprintf("D%d", nextSeq()), Active: true}
	if err := db.Create(&d).Error; err != nil {
		t.Fatalf("create department: %v", err)
	}
	return d
}

// MustUser inserts an active user with the given role and department assignments.
func MustUser(t *testing.T, db *gorm.DB, role model.Role, departments ...model.Department) model.User {
	t.Helper()
	n := nextSeq()
	u := model.User{
		Provider:    model.ProviderLocal,
		Email:       fmt.Sprintf("%s%d@example.org", role, n),
		Name:        fmt.Sprintf("%s %d", role, n),
		Role:        role,
		Active:      true,
		Departments: departments,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

var seq int

func nextSeq() int {
	seq++
	return seq
}
