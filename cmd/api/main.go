package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/tobi-04/srm-be-sub001/config"
	"github.com/tobi-04/srm-be-sub001/middleware"
	"github.com/tobi-04/srm-be-sub001/models"
	"github.com/tobi-04/srm-be-sub001/monitor"
	"github.com/tobi-04/srm-be-sub001/routes"
	"github.com/tobi-04/srm-be-sub001/services"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database
	config.InitDB()
	if err := config.DB.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.AcquisitionSource{},
		&models.Enrollment{},
		&models.EmailAutomation{},
		&models.AutomationStep{},
		&models.NotificationLog{},
		&models.EmailJob{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.Logger())

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Prometheus metrics
	monitor.RegisterMetricsRoute(router)

	// Setup routes
	routes.SetupRoutes(router)

	// Background engine: scheduler, worker and queue maintenance share one
	// lifecycle with the process.
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	scheduler := services.NewSchedulerService(config.DB)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	worker := services.NewWorkerService(config.DB, services.MailFunc(config.SendMail), workerConcurrency())
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		services.RunQueueMaintenance(ctx, services.NewQueueService(config.DB))
	}()

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s", port)
	log.Printf("📬 Dispatcher, scheduler and worker running")

	go func() {
		if err := router.Run(":" + port); err != nil {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Graceful shutdown drains in-flight sends before exit
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("shutdown signal received, stopping background engine...")
	cancel()
	wg.Wait()
	log.Println("background engine stopped")
}

func workerConcurrency() int {
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return services.DefaultWorkerConcurrency
}
