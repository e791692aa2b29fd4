package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"formrelay/adapters"
	discordadapter "formrelay/adapters/discord"
	emailadapter "formrelay/adapters/email"
	slackadapter "formrelay/adapters/slack"
	telegramadapter "formrelay/adapters/telegram"
	webhookadapter "formrelay/adapters/webhook"
	"formrelay/config"
	"formrelay/db"
	"formrelay/handlers"
	"formrelay/middleware"
	"formrelay/services/forms"
	"formrelay/services/integrations"
	"formrelay/services/jobs"
	"formrelay/services/organizations"
	"formrelay/services/txmanager"
	"formrelay/signupnotif"
	"formrelay/usecases/delivery"
)

func main() {
	if err := run(); err != nil {
		log.Printf("❌ Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize error alert middleware
	alertMiddleware := middleware.NewErrorAlertMiddleware(middleware.SlackAlertConfig{
		WebhookURL:  cfg.Alerts.SlackWebhookURL,
		Environment: cfg.Environment,
		AppName:     "formrelay",
		LogsURL:     cfg.ServerLogsURL,
	})

	// Initialize signup notifications
	signupnotif.Init(cfg.Alerts.SignupsWebhookURL, cfg.Environment)

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Initialize repositories with shared connection
	organizationsRepo := db.NewPostgresOrganizationsRepository(dbConn, cfg.DatabaseSchema)
	formsRepo := db.NewPostgresFormsRepository(dbConn, cfg.DatabaseSchema)
	integrationsRepo := db.NewPostgresIntegrationsRepository(dbConn, cfg.DatabaseSchema)
	jobsRepo := db.NewPostgresDeliveryJobsRepository(dbConn, cfg.DatabaseSchema)

	// Initialize transaction manager
	txManager := txmanager.NewTransactionManager(dbConn)

	organizationsService := organizations.NewOrganizationsService(organizationsRepo)
	formsService := forms.NewFormsService(formsRepo, integrationsRepo, txManager)
	integrationsService := integrations.NewIntegrationsService(integrationsRepo, formsRepo, txManager)
	jobsService := jobs.NewJobsService(jobsRepo)

	// One shared HTTP client for every outbound delivery; per-job deadlines
	// come from the delivery context, not the client
	deliveryHTTPClient := &http.Client{Timeout: cfg.Delivery.DeliveryTimeout}

	deliveryUseCase := delivery.NewDeliveryUseCase(
		integrationsService,
		jobsService,
		txManager,
		[]adapters.Adapter{
			webhookadapter.NewWebhookAdapter(deliveryHTTPClient),
			emailadapter.NewEmailAdapter(),
			slackadapter.NewSlackAdapter(deliveryHTTPClient),
			discordadapter.NewDiscordAdapter(deliveryHTTPClient),
			telegramadapter.NewTelegramAdapter(deliveryHTTPClient),
		},
		alertMiddleware.WrapBackgroundTask,
		cfg.Delivery,
	)

	adminHandler := handlers.NewAdminAPIHandler(organizationsService, formsService, integrationsService)
	adminHTTPHandler := handlers.NewAdminHTTPHandler(adminHandler)
	queueHandler := handlers.NewQueueAPIHandler(jobsService, deliveryUseCase.WakeQueue)
	queueHTTPHandler := handlers.NewQueueHTTPHandler(queueHandler)
	submissionsHandler := handlers.NewSubmissionsAPIHandler(formsService, deliveryUseCase)
	submissionsHTTPHandler := handlers.NewSubmissionsHTTPHandler(submissionsHandler)
	authMiddleware := middleware.NewSecretKeyAuthMiddleware(organizationsService)

	// Create a new router
	router := mux.NewRouter()

	// Setup endpoints with the new router
	adminHTTPHandler.SetupEndpoints(router, authMiddleware)
	queueHTTPHandler.SetupEndpoints(router, authMiddleware)
	submissionsHTTPHandler.SetupEndpoints(router)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			log.Printf("❌ Failed to write health check response: %v", err)
		}
	}).Methods("GET")

	// Start the delivery workers and the retry sweeper
	deliveryUseCase.Start()
	defer deliveryUseCase.Stop()

	// Setup CORS middleware
	allowedOrigins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Setup and handle graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           alertMiddleware.HTTPMiddleware(c.Handler(router)),
		ReadHeaderTimeout: 30 * time.Second,
	}

	return handleGracefulShutdown(server)
}

func handleGracefulShutdown(server *http.Server) error {
	// Channel to listen for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("✅ Listening on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown server gracefully; in-flight deliveries drain via the deferred
	// usecase Stop
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server shutdown error: %v", err)
		return err
	}

	log.Printf("✅ Server stopped gracefully")
	return nil
}
