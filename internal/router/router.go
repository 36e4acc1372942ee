package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"labreserve/internal/auth"
	"labreserve/internal/config"
	"labreserve/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	labHandler *handler.LabHandler,
	equipmentHandler *handler.EquipmentHandler,
	reservationHandler *handler.ReservationHandler,
	loanHandler *handler.LoanHandler,
	reportHandler *handler.ReportHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
	}))

	// User routes
	secured.GET("/users/me", userHandler.Me)
	secured.PUT("/users/me", userHandler.UpdateMe)
	secured.GET("/users", userHandler.List)
	secured.GET("/users/:id", userHandler.Get)
	secured.PUT("/users/:id/role", userHandler.SetRole)

	// Lab routes
	secured.GET("/labs", labHandler.List)
	secured.POST("/labs", labHandler.Create)
	secured.GET("/labs/:id", labHandler.Get)
	secured.PUT("/labs/:id", labHandler.Update)
	secured.DELETE("/labs/:id", labHandler.Delete)

	// Equipment routes
	secured.GET("/equipment", equipmentHandler.List)
	secured.POST("/equipment", equipmentHandler.Create)
	secured.GET("/equipment/:id", equipmentHandler.Get)
	secured.PUT("/equipment/:id", equipmentHandler.Update)
	secured.DELETE("/equipment/:id", equipmentHandler.Delete)

	// Reservation routes
	secured.GET("/reservations", reservationHandler.List)
	secured.POST("/reservations", reservationHandler.Create)
	secured.GET("/reservations/:id", reservationHandler.Get)
	secured.PUT("/reservations/:id", reservationHandler.Update)
	secured.DELETE("/reservations/:id", reservationHandler.Delete)
	secured.POST("/reservations/:id/approve", reservationHandler.Approve)
	secured.POST("/reservations/:id/reject", reservationHandler.Reject)
	secured.POST("/reservations/:id/cancel", reservationHandler.Cancel)

	// Loan routes
	secured.GET("/loans", loanHandler.List)
	secured.POST("/loans", loanHandler.Create)
	secured.GET("/loans/:id", loanHandler.Get)
	secured.PUT("/loans/:id", loanHandler.Update)
	secured.DELETE("/loans/:id", loanHandler.Delete)
	secured.POST("/loans/:id/approve", loanHandler.Approve)
	secured.POST("/loans/:id/reject", loanHandler.Reject)
	secured.POST("/loans/:id/return", loanHandler.Return)

	// Report routes
	secured.GET("/reports/occupancy", reportHandler.Occupancy)
	secured.GET("/reports/equipment-usage", reportHandler.EquipmentUsage)
	secured.GET("/reports/incidents", reportHandler.Incidents)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
