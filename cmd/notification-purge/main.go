package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/civicdesk/api/internal/config"
	"github.com/civicdesk/api/internal/database"
	"github.com/civicdesk/api/internal/service"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Show what would be purged without deleting anything")
	flag.Parse()

	startTime := time.Now()
	log.Println("Starting notification purge job...")

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// purging never touches unread counts, expired rows are already excluded
	notify := service.NewNotificationService(db, nil, cfg.NotificationTTL)
	ctx := context.Background()
	cutoff := time.Now()

	if *dryRun {
		n, err := notify.CountExpired(ctx, cutoff)
		if err != nil {
			log.Fatalf("Failed to count expired notifications: %v", err)
		}
		log.Printf("[DRY RUN] %d notifications expired before %s", n, cutoff.Format(time.RFC3339))
		log.Println("[DRY RUN] No changes made")
		return
	}

	purged, err := notify.PurgeExpired(ctx, cutoff)
	if err != nil {
		log.Fatalf("Failed to purge notifications: %v", err)
	}

	log.Printf("Notification purge complete. Removed %d notifications in %v", purged, time.Since(startTime))
}
