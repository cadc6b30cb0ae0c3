package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mashora/mashora-backend/database"
	"github.com/mashora/mashora-backend/internal/gateway"
	"github.com/mashora/mashora-backend/internal/jobs"
	"github.com/mashora/mashora-backend/internal/models"
	"github.com/mashora/mashora-backend/internal/ratelimit"
	"github.com/mashora/mashora-backend/internal/routes"
	"github.com/mashora/mashora-backend/internal/services"
	"github.com/mashora/mashora-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Lawyer{},
			&models.Member{},
			&models.Package{},
			&models.LegalService{},
			&models.ServiceCategory{},
			&models.ServiceRequest{},
			&models.OTP{},
			&models.Payment{},
			&models.Subscription{},
			&models.Notification{},
			&models.SequenceCounter{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}
	storage.SetStore(store)

	// Initialize Twilio service; OTP delivery falls back to the dev sink
	// when credentials are absent
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio not configured - OTP delivery will use the dev sink (%v)", err)
		twilioService = nil
	} else {
		log.Println("✅ Twilio service initialized")
	}
	services.SetTwilioService(twilioService)

	// Rate limiters: Redis-backed when REDIS_URL is set, in-process otherwise
	var sendLimiter, verifyLimiter ratelimit.Limiter
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL:", err)
		}
		client := redis.NewClient(opts)
		sendLimiter = ratelimit.NewRedisLimiter(client, "otp_send", ratelimit.OTPSendConfig)
		verifyLimiter = ratelimit.NewRedisLimiter(client, "otp_verify", ratelimit.OTPVerifyConfig)
		log.Println("✅ Using Redis-backed rate limiters")
	} else {
		sendLimiter = ratelimit.NewMemoryLimiter(ratelimit.OTPSendConfig)
		verifyLimiter = ratelimit.NewMemoryLimiter(ratelimit.OTPVerifyConfig)
		log.Println("✅ Using in-memory rate limiters")
	}

	// Payment gateway client
	var gatewayClient gateway.Client
	if client, err := gateway.NewClientFromEnv(); err != nil {
		log.Printf("⚠️  Payment gateway not configured - payment verification disabled (%v)", err)
	} else {
		gatewayClient = client
		log.Println("✅ Payment gateway client initialized")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Println("⚠️  JWT_SECRET not set - using an insecure development secret")
		jwtSecret = "dev-secret-change-me"
	}

	// Initialize all services
	strictDelivery := os.Getenv("OTP_STRICT_DELIVERY") == "true"
	deliveryRouter := services.NewDeliveryRouter(twilioService, strictDelivery)
	otpService := services.NewOTPService(store, deliveryRouter, sendLimiter, verifyLimiter)
	tokenService := services.NewTokenService(jwtSecret)
	notifier := services.NewNotifier(store)
	sequenceGen := services.NewStoreSequenceGenerator(store)
	settlementService := services.NewSettlementService(store, sequenceGen, notifier)
	paymentService := services.NewPaymentService(store, gatewayClient, settlementService)
	assignmentService := services.NewAssignmentService(store, notifier)

	// Initialize and start notification jobs
	notificationJob := jobs.NewNotificationJob(store, twilioService)
	notificationJob.Start()

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Mashora Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Mashora Backend API",
			"version": "1.0.0",
			"status":  "healthy",
			"storage": getStorageType(),
			"channels": fiber.Map{
				"sms":      twilioService.CanSendSMS(),
				"whatsapp": twilioService.CanSendWhatsApp(),
			},
		})
	})

	// Health check endpoint for monitoring
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		statusCode := 200

		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			if err != nil || sqlDB.Ping() != nil {
				status = "unhealthy"
				statusCode = 503
			}
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"database": status == "healthy",
				"twilio":   twilioService != nil,
				"gateway":  gatewayClient != nil,
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(app, routes.Services{
		OTP:        otpService,
		Payment:    paymentService,
		Assignment: assignmentService,
		Tokens:     tokenService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		notificationJob.Stop()
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 Mashora Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("📱 Delivery: %s", getDeliveryStatus(twilioService))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getDeliveryStatus(t *services.TwilioService) string {
	if t == nil {
		return "Dev sink (Twilio not configured)"
	}
	return "Twilio"
}
