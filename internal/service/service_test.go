package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/testutil"
	"gorm.io/gorm"
)

type env struct {
	db          *gorm.DB
	cache       *fakeUnreadCache
	notify      *NotificationService
	activity    *ActivityService
	reports     *ReportService
	emergencies *EmergencyService
	users       *UserService
	departments *DepartmentService
	stats       *StatsService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	cache := newFakeUnreadCache()
	notify := NewNotificationService(db, cache, 24*time.Hour)
	activity := NewActivityService(db)
	return &env{
		db:          db,
		cache:       cache,
		notify:      notify,
		activity:    activity,
		reports:     NewReportService(db, notify, activity),
		emergencies: NewEmergencyService(db, notify, activity),
		users:       NewUserService(db, activity, "test-secret"),
		departments: NewDepartmentService(db, activity),
		stats:       NewStatsService(db),
	}
}

func (e *env) notifications(t *testing.T, userID int64) []model.Notification {
	t.Helper()
	var items []model.Notification
	if err := e.db.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	return items
}

func principal(u model.User) auth.Principal {
	return principalOf(&u)
}

type fakeUnreadCache struct {
	counts        map[int64]int64
	hits          int
	invalidations int
}

func newFakeUnreadCache() *fakeUnreadCache {
	return &fakeUnreadCache{counts: map[int64]int64{}}
}

func (c *fakeUnreadCache) GetUnreadCount(_ context.Context, userID int64) (int64, error) {
	n, ok := c.counts[userID]
	if !ok {
		return 0, errors.New("miss")
	}
	c.hits++
	return n, nil
}

func (c *fakeUnreadCache) SetUnreadCount(_ context.Context, userID int64, count int64) error {
	c.counts[userID] = count
	return nil
}

func (c *fakeUnreadCache) InvalidateUnreadCount(_ context.Context, userID int64) error {
	delete(c.counts, userID)
	c.invalidations++
	return nil
}

func reportInput(departmentID int64) CreateReportInput {
	return CreateReportInput{
		Title:        "Broken streetlight",
		Description:  "The streetlight on 5th avenue has been out for a week",
		DepartmentID: departmentID,
		Location:     model.Location{Latitude: 37.5, Longitude: 127.0, Address: "5th Ave"},
	}
}

func emergencyInput() CreateEmergencyInput {
	return CreateEmergencyInput{
		Type:          model.EmergencyFire,
		Description:   "Smoke coming out of the basement",
		ContactNumber: "+1 555 010 9999",
		Location:      model.Location{Latitude: 40.7, Longitude: -74.0, Address: "12 Elm St"},
	}
}
