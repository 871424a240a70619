package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/config"
	"github.com/studylane/agency-api/database"
	"github.com/studylane/agency-api/handlers"
	agent_handlers "github.com/studylane/agency-api/handlers/agent"
	auth_handlers "github.com/studylane/agency-api/handlers/auth"
	commission_handlers "github.com/studylane/agency-api/handlers/commission"
	notification_handlers "github.com/studylane/agency-api/handlers/notification"
	payment_handlers "github.com/studylane/agency-api/handlers/payment"
	report_handlers "github.com/studylane/agency-api/handlers/report"
	student_handlers "github.com/studylane/agency-api/handlers/student"
	university_handlers "github.com/studylane/agency-api/handlers/university"
	"github.com/studylane/agency-api/services"
	"github.com/studylane/agency-api/services/events"
	"github.com/studylane/agency-api/services/storage"
	"github.com/studylane/agency-api/utils/auth"
	"github.com/studylane/agency-api/utils/cache"
	"github.com/studylane/agency-api/utils/middleware"
	"gorm.io/gorm"
)

// Dependencies carries the shared infrastructure handed down from app setup
type Dependencies struct {
	Store      database.Storage
	Hub        *events.Hub
	RedisCache *cache.RedisCache
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "agency-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	})

	db, ok := deps.Store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Brute force protection needs Redis; skip it when unavailable
	var bruteForceProtection *middleware.BruteForceProtection
	if deps.RedisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.RedisCache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Object storage for document and picture uploads
	var spacesClient *storage.SpacesClient
	if getEnv, err := config.Get(); err == nil && getEnv.STORAGE_ACCESS_KEY != "" {
		spacesClient, err = storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: getEnv.STORAGE_ACCESS_KEY,
			SecretKey: getEnv.STORAGE_SECRET_KEY,
			Bucket:    getEnv.STORAGE_BUCKET,
			Region:    getEnv.STORAGE_REGION,
			Endpoint:  getEnv.STORAGE_ENDPOINT,
			CDNURL:    getEnv.STORAGE_CDN_URL,
		})
		if err != nil {
			log.Printf("Warning: object storage unavailable, uploads disabled: %v", err)
		}
	}

	// Core services
	notificationService := services.NewNotificationService(db, deps.Hub)
	applicationService := services.NewApplicationService(db, notificationService)
	commissionService := services.NewCommissionService(db, deps.RedisCache, notificationService)
	paymentService := services.NewPaymentService(db, notificationService)
	reportService := services.NewReportService(db)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	agentHandler := agent_handlers.NewAgentHandler(db, spacesClient)
	studentHandler := student_handlers.NewStudentHandler(db, applicationService)
	commissionHandler := commission_handlers.NewCommissionHandler(commissionService)
	paymentHandler := payment_handlers.NewPaymentHandler(paymentService)
	reportHandler := report_handlers.NewReportHandler(reportService)
	notificationHandler := notification_handlers.NewNotificationHandler(notificationService, deps.Hub)
	universityHandler := university_handlers.NewUniversityHandler(db)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check endpoint (public)
	app.Get("/ping", handlers.HandleCheckHealth(deps.Store))

	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/logout-all", authMiddleware.Required(), authHandler.LogoutAll)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Agent profile routes
	agents := api.Group("/agents", authMiddleware.Required())
	agents.Get("/me", agentHandler.GetProfile)
	agents.Patch("/me", agentHandler.UpdateProfile)
	agents.Post("/me/consent", agentHandler.AcceptConsent)
	agents.Post("/me/profile-picture", agentHandler.UploadProfilePicture)
	agents.Get("/me/documents", agentHandler.ListDocuments)
	agents.Post("/me/documents", agentHandler.UploadDocument)
	agents.Delete("/me/documents/:id", agentHandler.DeleteDocument)

	// Student routes
	students := api.Group("/students", authMiddleware.Required())
	students.Post("/", studentHandler.CreateStudent)
	students.Get("/", studentHandler.ListStudents)
	students.Get("/:id", studentHandler.GetStudent)
	students.Patch("/:id", studentHandler.UpdateStudent)
	students.Delete("/:id", studentHandler.DeleteStudent)

	// Application lifecycle routes (nested under students)
	students.Post("/:id/applications", studentHandler.CreateApplication)
	students.Get("/:id/applications", studentHandler.ListStudentApplications)
	students.Get("/:id/applications/:applicationId", studentHandler.GetApplication)
	students.Patch("/:id/applications/:applicationId/status", studentHandler.UpdateApplicationStatus)
	students.Post("/:id/applications/:applicationId/request-documents", studentHandler.RequestDocuments)

	// Cross-student application views
	applications := api.Group("/applications", authMiddleware.Required())
	applications.Get("/", studentHandler.ListAllApplications)
	applications.Post("/bulk-status", authMiddleware.AdminOnly(), studentHandler.BulkUpdateApplicationStatus)

	// Commission routes
	commissions := api.Group("/commissions", authMiddleware.Required())
	commissions.Get("/", commissionHandler.List)
	commissions.Get("/summary", commissionHandler.Summary)
	commissions.Get("/dashboard", authMiddleware.AdminOnly(), commissionHandler.DashboardStats)
	commissions.Post("/", authMiddleware.AdminOnly(), commissionHandler.Create)
	commissions.Post("/generate", authMiddleware.AdminOnly(), commissionHandler.Generate)
	commissions.Patch("/:id/status", authMiddleware.AdminOnly(), commissionHandler.UpdateStatus)

	// Payment routes
	payments := api.Group("/payments", authMiddleware.Required())
	payments.Post("/requests", paymentHandler.CreateRequest)
	payments.Get("/requests", paymentHandler.ListRequests)
	payments.Post("/requests/:id/process", authMiddleware.AdminOnly(), paymentHandler.ProcessRequest)
	payments.Get("/history", paymentHandler.History)

	// Report routes (admin only)
	reports := api.Group("/reports", authMiddleware.Required(), authMiddleware.AdminOnly())
	reports.Post("/generate", reportHandler.Generate)
	reports.Get("/", reportHandler.List)
	reports.Get("/latest", reportHandler.Latest)
	reports.Get("/trends", reportHandler.Trends)

	// Notification routes
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/unread-count", notificationHandler.GetUnreadCount)
	notifications.Get("/stream", notificationHandler.Stream)
	notifications.Post("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Post("/:id/read", notificationHandler.MarkAsRead)

	// University catalog routes
	universities := api.Group("/universities")
	universities.Get("/", universityHandler.List)
	universities.Get("/:id", universityHandler.Get)
	universities.Post("/", authMiddleware.Required(), authMiddleware.AdminOnly(), universityHandler.Create)
	universities.Patch("/:id", authMiddleware.Required(), authMiddleware.AdminOnly(), universityHandler.Update)
	universities.Delete("/:id", authMiddleware.Required(), authMiddleware.AdminOnly(), universityHandler.Delete)
}
