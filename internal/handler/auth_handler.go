package handler

import (
	"net/http"
	"time"

	"hostel-management-backend/internal/middleware"
	"hostel-management-backend/internal/service"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const refreshCookie = "refresh_token"

type AuthHandler struct {
	authService  *service.AuthService
	cookieSecure bool
	log          *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, cookieSecure bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"fullName" binding:"max=100"`
	Role     string `json:"role" binding:"omitempty,oneof=admin manager staff"`
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err, "Failed to log in")
		return
	}

	h.setRefreshCookie(c, response.RefreshToken, int(utils.GetRefreshTokenExpiry()/time.Second))
	utils.SuccessResponse(c, response)
}

// Refresh generates a new access token from the refresh cookie
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookie)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	accessToken, err := h.authService.RefreshAccessToken(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, h.log, err, "Failed to refresh token")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"accessToken": accessToken,
	})
}

// Logout revokes the refresh token
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookie)
	if err != nil {
		h.setRefreshCookie(c, "", -1)
		utils.MessageResponse(c, "Logged out successfully")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
		respondError(c, h.log, err, "Failed to logout")
		return
	}

	h.setRefreshCookie(c, "", -1)
	utils.MessageResponse(c, "Logged out successfully")
}

// Register creates a user account (admin only)
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	}, middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to register user")
		return
	}

	utils.DataResponse(c, http.StatusCreated, "User registered successfully", user)
}

// Me returns the identity carried by the access token
func (h *AuthHandler) Me(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"userId": middleware.UserID(c),
		"role":   c.GetString(middleware.ContextRole),
	})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, value, maxAge, "/", "", h.cookieSecure, true)
}
