package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	config "github.com/aiqda/aiqda-backend/configs"
	"github.com/aiqda/aiqda-backend/database"
	"github.com/aiqda/aiqda-backend/handlers"
	"github.com/aiqda/aiqda-backend/jobs"
	"github.com/aiqda/aiqda-backend/journal"
	"github.com/aiqda/aiqda-backend/media"
	"github.com/aiqda/aiqda-backend/notifications"
	"github.com/aiqda/aiqda-backend/routes"
	"github.com/aiqda/aiqda-backend/services"
	"github.com/aiqda/aiqda-backend/video"
	"github.com/aiqda/aiqda-backend/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	config.LoadEnv("")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("🔥 Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("🔥 %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("🔥 %v", err)
	}
	if err := database.SeedAdmin(db, cfg.Admin, cfg.BcryptCost); err != nil {
		log.Fatalf("🔥 Failed to seed admin: %v", err)
	}

	mediaClient, err := media.New(cfg.CloudinaryURL)
	if err != nil {
		log.Fatalf("🔥 %v", err)
	}
	mailer := notifications.NewMailer(cfg.Email)

	progressJournal, err := journal.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Printf("⚠️ Progress journal unavailable, continuing without it: %v", err)
		progressJournal = nil
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	store := services.NewGormStore(db)
	certificates := services.NewCertificateService(db, mediaClient, mailer, hub)
	progressService := services.NewProgressService(store, hub, certificates)
	if progressJournal != nil {
		progressService.Subscribe(progressJournal)
	}
	billing := services.NewBillingService(db)

	h := &handlers.Handler{
		DB:           db,
		Config:       cfg,
		Progress:     progressService,
		Analytics:    services.NewAnalyticsService(store),
		Enrollment:   services.NewEnrollmentService(db),
		Billing:      billing,
		Certificates: certificates,
		Mailer:       mailer,
		Media:        mediaClient,
		Videos:       video.NewClient(cfg.VimeoAccessToken),
		Hub:          hub,
		Journal:      progressJournal,
		GoogleOAuth:  handlers.NewGoogleOAuthConfig(cfg.OAuth),
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.SubscriptionExpiryCron, jobs.ExpireSubscriptions(billing)); err != nil {
		log.Fatalf("🔥 Invalid SUBSCRIPTION_EXPIRY_CRON %q: %v", cfg.SubscriptionExpiryCron, err)
	}
	if _, err := c.AddFunc(cfg.SubscriptionReminderCron, jobs.SendExpiryReminders(billing, mailer, time.Now)); err != nil {
		log.Fatalf("🔥 Invalid SUBSCRIPTION_REMINDER_CRON %q: %v", cfg.SubscriptionReminderCron, err)
	}
	c.Start()
	log.Println("✅ Subscription jobs scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:      "Aiqda",
		BodyLimit:    12 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.CORSAllowedOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition",
		MaxAge:        86400,
	}))
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Aiqda API",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"journal": progressJournal.Enabled(),
		})
	})

	routes.Setup(app, h)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️ Server shutdown error: %v", err)
		}
	}()

	log.Printf("✅ Server is running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("🔥 Server failed: %v", err)
	}

	<-c.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := progressJournal.Close(shutdownCtx); err != nil {
		log.Printf("⚠️ Failed to close progress journal: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
