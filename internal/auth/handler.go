package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidshare/backend/pkg/response"
)

// Handler handles POST /auth/login for the video owner.
type Handler struct {
	passwordHash string
	jwtService   *JWTService
	logger       *zap.Logger
}

// NewHandler creates an auth handler. passwordHash is the bcrypt hash
// of the owner password from configuration.
func NewHandler(passwordHash string, jwtService *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{passwordHash: passwordHash, jwtService: jwtService, logger: logger}
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login checks the owner password and issues a token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "password required")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)) != nil {
		response.Unauthorized(c, "wrong password")
		return
	}
	token, err := h.jwtService.Generate()
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "failed to issue token")
		return
	}
	response.OK(c, gin.H{"token": token})
}
