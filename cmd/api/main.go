package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anjiri1684/edutech_marketplace/cache"
	config "github.com/anjiri1684/edutech_marketplace/configs"
	"github.com/anjiri1684/edutech_marketplace/database"
	"github.com/anjiri1684/edutech_marketplace/events"
	"github.com/anjiri1684/edutech_marketplace/handlers"
	"github.com/anjiri1684/edutech_marketplace/jobs"
	"github.com/anjiri1684/edutech_marketplace/notifications"
	"github.com/anjiri1684/edutech_marketplace/payments"
	"github.com/anjiri1684/edutech_marketplace/routes"
	"github.com/anjiri1684/edutech_marketplace/services"
	"github.com/anjiri1684/edutech_marketplace/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg := config.Load()

	db := database.ConnectDB(cfg.DatabaseURL)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("🔥 %v", err)
	}
	database.SeedAdmin(db, cfg)

	provider, err := payments.New(cfg)
	if err != nil {
		log.Fatalf("🔥 Payment provider: %v", err)
	}
	log.Printf("✅ Payment provider: %s", provider.Name())

	var (
		storage services.FileStorage
		signer  handlers.UploadSigner
	)
	if cfg.CloudinaryURL != "" {
		cld, err := services.NewCloudinaryStorage(cfg.CloudinaryURL)
		if err != nil {
			log.Fatalf("🔥 Cloudinary: %v", err)
		}
		storage, signer = cld, cld
	} else {
		log.Println("⚠️ CLOUDINARY_URL not set, uploads and certificates are disabled.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	notifier := services.Notifier(hub)
	if cfg.KafkaBrokers != "" {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
		if err != nil {
			log.Fatalf("🔥 Kafka: %v", err)
		}
		defer publisher.Close()
		notifier = services.FanOut(hub, publisher)
	}

	var mailer services.Mailer
	if email := notifications.NewEmailService(cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName); email != nil {
		mailer = email
	}

	authSvc := services.NewAuthService(db, cfg.JWTSecret, cfg.JWTExpiry, mailer)
	courseSvc := services.NewCourseService(db)
	if cfg.RedisURL != "" {
		store, err := cache.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("🔥 Redis: %v", err)
		}
		defer store.Close()
		courseSvc.WithCache(store)
	}
	enrollmentSvc := services.NewEnrollmentService(db, notifier)
	teacherSvc := services.NewTeacherService(db, storage, notifier, mailer)
	paymentSvc := services.NewPaymentService(db, provider, services.PaymentServiceConfig{
		Timeout:  cfg.ProviderTimeout,
		Currency: cfg.Currency,
		Notifier: notifier,
		Mailer:   mailer,
	})
	if storage != nil {
		enrollmentSvc.OnComplete(services.NewCertificateService(db, storage, notifier))
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReconcileSchedule, jobs.ReconcilePayments(paymentSvc, cfg.ReconcileAfter, 5*time.Minute)); err != nil {
		log.Fatalf("🔥 Invalid reconcile schedule %q: %v", cfg.ReconcileSchedule, err)
	}
	if _, err := c.AddFunc("@hourly", jobs.ExpireSubscriptions(db, 24*time.Hour)); err != nil {
		log.Fatalf("🔥 Failed to schedule subscription expiry: %v", err)
	}
	c.Start()
	log.Println("✅ Cron jobs scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:      "EduTech Marketplace",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    20 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(cfg.IsProduction()),
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigin,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Stripe-Signature",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.Register(app, routes.Handlers{
		JWTSecret:   cfg.JWTSecret,
		Auth:        handlers.NewAuthHandler(authSvc),
		Courses:     handlers.NewCourseHandler(courseSvc),
		Enrollments: handlers.NewEnrollmentHandler(enrollmentSvc),
		Payments:    handlers.NewPaymentHandler(paymentSvc),
		Teachers:    handlers.NewTeacherHandler(teacherSvc, courseSvc),
		Admin:       handlers.NewAdminHandler(teacherSvc),
		Uploads:     handlers.NewUploadHandler(signer),
		Hub:         hub,
	})

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		<-c.Stop().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("🔥 Shutdown: %v", err)
		}
	}()

	log.Printf("✅ Server is running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
