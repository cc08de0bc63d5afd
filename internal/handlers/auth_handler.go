package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	limiter     fiber.Handler
}

// NewAuthHandler creates a new AuthHandler. limiter guards register and login and may be nil.
func NewAuthHandler(authService *services.AuthService, limiter fiber.Handler) *AuthHandler {
	return &AuthHandler{authService: authService, limiter: limiter}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(r Routers) {
	authRoutes := r.API.Group("/auth")
	limiter := orNext(h.limiter)
	authRoutes.Post("/register", limiter, h.HandleRegister)
	authRoutes.Post("/login", limiter, h.HandleLogin)
	authRoutes.Get("/me", r.Auth, h.HandleMe)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	user, err := h.authService.RegisterUser(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return created(c, fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}

	token, user, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		middleware.Logger(c).WithField("username", req.Username).Info("login failed")
		return fail(c, err)
	}
	return ok(c, LoginResponse{Token: token, User: user})
}

func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.GetUser(c.UserContext(), middleware.CurrentActor(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, user)
}
