package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fieldops-service/config"
	"fieldops-service/database"
	"fieldops-service/handlers"
	"fieldops-service/metrics"
	"fieldops-service/middleware"
	"fieldops-service/processor"
	"fieldops-service/rabbitmq"
	"fieldops-service/services"
	"fieldops-service/twilio"
	"fieldops-service/utils"
	"fieldops-service/version"
	ws "fieldops-service/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if cfg.LogLevel == "debug" {
		log.SetLevelFromString("debug")
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	info := version.Get("fieldops-service")
	log.Infof("Starting fieldops-service version %s (%s)", info.Version, info.GitSHA)

	metrics.Register()

	db, err := utils.DBConnect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	jobsService := database.NewJobsService(db)
	photosService := database.NewPhotosService(db)

	hub := ws.NewHub()
	go hub.Run()

	twilioClient := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	if !twilioClient.Configured() {
		log.Warn("Twilio credentials not set, outbound notifications disabled")
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.PhotoRoutingKey)
	if err != nil {
		log.Fatalf("Failed to connect publisher to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	subscriber, err := rabbitmq.NewSubscriber(cfg.RabbitMQURL, cfg.RabbitMQExchange,
		cfg.PhotoQueueName, cfg.ConsumerWorkers, cfg.ConsumerPrefetch)
	if err != nil {
		log.Fatalf("Failed to connect subscriber to RabbitMQ: %v", err)
	}
	defer subscriber.Close()

	validator := &services.Validator{
		MinWidth:           cfg.MinImageWidth,
		MinHeight:          cfg.MinImageHeight,
		SharpnessThreshold: cfg.SharpnessThreshold,
		DuplicateDistance:  cfg.DuplicateDistance,
	}

	proc := processor.New(jobsService, photosService, validator, hub, twilioClient, subscriber, cfg.PhotoRoutingKey)
	if err := proc.Start(); err != nil {
		log.Fatalf("Failed to start validation consumer: %v", err)
	}

	issuer := middleware.NewTokenIssuer(cfg.JWTSecret)
	h := handlers.NewHandlers(cfg, jobsService, photosService, hub, publisher, twilioClient, issuer)

	router := setupRouter(h, issuer)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func setupRouter(h *handlers.Handlers, issuer *middleware.TokenIssuer) *gin.Engine {
	router := gin.Default()

	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", h.HealthCheck)
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get("fieldops-service"))
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/auth/login", h.Login)

		// Twilio posts here; authenticated by webhook signature upstream.
		api.POST("/whatsapp/webhook", h.WhatsAppWebhook)
		api.POST("/whatsapp/error", h.WhatsAppError)

		// Live updates for the dashboard
		api.GET("/events/listen", h.ListenEvents)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(issuer))
		{
			protected.POST("/jobs", h.CreateJob)
			protected.GET("/jobs", h.ListJobs)
			protected.GET("/jobs/:id", h.GetJob)
			protected.POST("/jobs/:id/photos", h.SubmitPhoto)
			protected.GET("/jobs/:id/export.zip", h.ExportJobZip)
			protected.POST("/jobs/:id/export.xlsx", h.ExportATP)
			protected.GET("/templates/sector/:sector", h.SectorTemplate)
			protected.GET("/ready-sites", h.ReadySites)
			protected.GET("/sites/:siteId/export.zip", h.ExportSiteZip)
			protected.GET("/photos/:id/image", h.PhotoImage)
			protected.GET("/exports/sector.xlsx", h.ExportSectorWorkbook)
		}
	}

	return router
}
