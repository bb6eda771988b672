package main

import (
	"context"
	"log"

	"github.com/civicdesk/api/internal/auth"
	"github.com/civicdesk/api/internal/cache"
	"github.com/civicdesk/api/internal/config"
	"github.com/civicdesk/api/internal/database"
	"github.com/civicdesk/api/internal/media"
	"github.com/civicdesk/api/internal/middleware"
	"github.com/civicdesk/api/internal/ratelimit"
	"github.com/civicdesk/api/internal/routes"
	"github.com/civicdesk/api/internal/scheduler"
	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"
)

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis backs the unread counters and the rate limiter. Both fail open.
	var unread service.UnreadCache
	var limiter *ratelimit.Limiter
	redisClient, err := cache.Connect(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
	} else {
		defer redisClient.Close()
		unread = cache.NewRedisCache(redisClient, cfg.UnreadCacheTTL)
		limiter = ratelimit.NewLimiter(
			ratelimit.NewRedisStorage(redisClient),
			ratelimit.DefaultLimits(cfg.ReportLimitPerHour, cfg.EmergencyLimitPerHour),
		)
	}

	store, err := newMediaStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s media store: %v", cfg.MediaDriver, err)
	}
	uploader := media.NewUploader(store, cfg.MaxUploadBytes, cfg.MaxFilesPerUpload)

	// Services
	notify := service.NewNotificationService(db, unread, cfg.NotificationTTL)
	notify.OnDispatch = middleware.RecordNotificationDispatch
	activity := service.NewActivityService(db)
	users := service.NewUserService(db, activity, cfg.JWTSecret)

	var googleConfig *oauth2.Config
	if cfg.GoogleEnabled() {
		googleConfig = auth.NewGoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	} else {
		log.Println("Google sign-in disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
	}

	// Background notification sweeper
	var sweeper *scheduler.NotificationSweeper
	if cfg.SweeperEnabled {
		sweeper = scheduler.NewNotificationSweeper(notify, cfg.SweeperInterval)
		sweeper.OnSweep = middleware.RecordSweep
		go sweeper.Start(context.Background())
		log.Println("Background notification sweeper started")
	}

	// Setup router
	r := gin.Default()
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.FrontendURL)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Content-Disposition")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Sweeper status
	r.GET("/sweeper/status", func(c *gin.Context) {
		if sweeper != nil {
			c.JSON(200, sweeper.GetStatus())
		} else {
			c.JSON(200, gin.H{"enabled": false, "message": "Sweeper is disabled"})
		}
	})

	if fs, ok := store.(*media.FSStore); ok {
		r.Static("/uploads", fs.Dir())
	}

	routes.Register(r, routes.Deps{
		JWTSecret:     cfg.JWTSecret,
		FrontendURL:   cfg.FrontendURL,
		GoogleConfig:  googleConfig,
		Users:         users,
		Departments:   service.NewDepartmentService(db, activity),
		Reports:       service.NewReportService(db, notify, activity),
		Emergencies:   service.NewEmergencyService(db, notify, activity),
		Notifications: notify,
		Activity:      activity,
		Stats:         service.NewStatsService(db),
		Uploader:      uploader,
		Limiter:       limiter,
	})

	log.Printf("API server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newMediaStore(cfg *config.Config) (media.Store, error) {
	switch cfg.MediaDriver {
	case "s3":
		return media.NewS3Store(media.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PathStyle:       cfg.S3PathStyle,
			PublicURL:       cfg.S3PublicURL,
		})
	default:
		return media.NewFSStore(cfg.MediaDir, cfg.MediaPublicURL)
	}
}
