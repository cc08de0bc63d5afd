// Package server assembles the fiber application from services.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Products      *services.ProductService
	Orders        *services.OrderService
	Payments      *services.PaymentService
	Reviews       *services.ReviewService
	Carts         *services.CartService
	Wishlist      *services.WishlistService
	Notifications *services.NotificationService
	Admin         *services.AdminService
}

// NewServices wires the services over a store.
func NewServices(cfg *config.Config, store *repositories.Store, mailer services.OrderMailer, publisher events.Publisher, notifications *services.NotificationService, log logrus.FieldLogger) *Services {
	repos := store.Repositories
	orders := services.NewOrderService(store, repos, mailer, publisher, log)
	orders.SetMailTimeout(cfg.SMTP.Timeout)
	return &Services{
		Auth:          services.NewAuthService(repos.Users, cfg.JWT.Secret, cfg.JWT.TTL, log),
		Users:         services.NewUserService(store, repos, log),
		Products:      services.NewProductService(repos.Products),
		Orders:        orders,
		Payments:      services.NewPaymentService(repos.Orders, cfg.Payment),
		Reviews:       services.NewReviewService(store, repos, log),
		Carts:         services.NewCartService(repos.Cart, repos.Products),
		Wishlist:      services.NewWishlistService(repos.Wishlist, repos.Products),
		Notifications: notifications,
		Admin:         services.NewAdminService(store, repos, publisher, cfg.App.StoreName, log),
	}
}

// Options tune the app for tests.
type Options struct {
	DisableRateLimit bool
}

// NewApp builds the fiber app with every route mounted under /api/v1.
func NewApp(cfg *config.Config, db *gorm.DB, svc *Services, log logrus.FieldLogger, opts Options) *fiber.App {
	decimal.MarshalJSONWithoutQuotes = true

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.StoreName,
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "unreachable",
			})
		}
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "connected",
		})
	})

	var authLimit, checkoutLimit fiber.Handler
	if !opts.DisableRateLimit {
		authLimiter, checkoutLimiter := middleware.AuthLimiter(), middleware.CheckoutLimiter()
		stop := make(chan struct{})
		go authLimiter.Run(stop)
		go checkoutLimiter.Run(stop)
		app.Hooks().OnShutdown(func() error {
			close(stop)
			return nil
		})
		authLimit, checkoutLimit = authLimiter.Handler(), checkoutLimiter.Handler()
	}

	auth := middleware.AuthRequired(svc.Auth)
	apiV1 := app.Group("/api/v1")
	r := handlers.Routers{
		API:   apiV1,
		Auth:  auth,
		Admin: apiV1.Group("/admin", auth, middleware.RequireAdmin()),
	}

	handlers.NewAuthHandler(svc.Auth, authLimit).RegisterRoutes(r)
	handlers.NewProductHandler(svc.Products).RegisterRoutes(r)
	handlers.NewReviewHandler(svc.Reviews).RegisterRoutes(r)
	handlers.NewOrderHandler(svc.Orders, svc.Payments, checkoutLimit).RegisterRoutes(r)
	handlers.NewCartHandler(svc.Carts, svc.Orders, checkoutLimit).RegisterRoutes(r)
	handlers.NewUserHandler(svc.Users, svc.Wishlist, svc.Notifications).RegisterRoutes(r)
	handlers.NewAdminHandler(svc.Admin, svc.Orders, svc.Users, svc.Notifications).RegisterRoutes(r)

	return app
}
