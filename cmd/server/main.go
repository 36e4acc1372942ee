package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "labreserve/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"labreserve/internal/auth"
	"labreserve/internal/cache"
	"labreserve/internal/config"
	"labreserve/internal/db"
	"labreserve/internal/handler"
	"labreserve/internal/model"
	"labreserve/internal/repository"
	"labreserve/internal/router"
	"labreserve/internal/service"
)

// @title Lab Reservation API
// @version 1.0
// @description Laboratory space reservation and equipment loan service with JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			&model.Loan{},
			&model.Reservation{},
			&model.Equipment{},
			&model.Lab{},
			&model.User{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Lab{},
		&model.Equipment{},
		&model.Reservation{},
		&model.Loan{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.Printf("Warning: redis not reachable, caching disabled: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	labRepo := repository.NewLabRepository(gormDB)
	equipmentRepo := repository.NewEquipmentRepository(gormDB)
	reservationRepo := repository.NewReservationRepository(gormDB)
	loanRepo := repository.NewLoanRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	userService := service.NewUserService(userRepo)
	labService := service.NewLabService(labRepo, cacheClient)
	equipmentService := service.NewEquipmentService(equipmentRepo, labRepo, cacheClient)
	reservationService := service.NewReservationService(reservationRepo, labRepo, cfg.StrictReservationFlow)
	loanService := service.NewLoanService(loanRepo, equipmentRepo, cacheClient)
	reportService := service.NewReportService(reservationRepo, loanRepo, labRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	labHandler := handler.NewLabHandler(labService)
	equipmentHandler := handler.NewEquipmentHandler(equipmentService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	loanHandler := handler.NewLoanHandler(loanService)
	reportHandler := handler.NewReportHandler(reportService)

	// Register routes
	router.Register(
		e,
		cfg,
		authHandler,
		userHandler,
		labHandler,
		equipmentHandler,
		reservationHandler,
		loanHandler,
		reportHandler,
	)

	// Log swagger full path
	swaggerHost := cfg.SwaggerHost
	if swaggerHost == "" {
		swaggerHost = "http://localhost:" + cfg.ServerPort
	}
	log.Printf("Swagger documentation available at: %s/swagger/index.html", swaggerHost)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
