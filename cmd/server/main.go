package main

import (
	"log"
	"os"
	"time"

	"cash-application-engine/internal/config"
	handler "cash-application-engine/internal/handlers"
	"cash-application-engine/internal/logging"
	"cash-application-engine/internal/repository"
	"cash-application-engine/internal/routes"
	service "cash-application-engine/internal/services/reconciliation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.NewLogger(cfg.Logging)

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		logger.Error("database connection failed", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(db); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	svc := service.NewReconciliationService(db, *cfg, logger)
	routes.RegisterRoutes(r, handler.NewReconciliationHandler(svc, logger))

	logger.Info("server starting", "addr", cfg.Server.Addr, "name", cfg.App.Name, "version", cfg.App.Version)
	if err := r.Run(cfg.Server.Addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
