package handler

import (
	appdir "github.com/freightflow/backend/internal/application/directory"
	domaindir "github.com/freightflow/backend/internal/domain/directory"
	"github.com/freightflow/backend/internal/infrastructure/auth"
	"github.com/freightflow/backend/internal/interfaces/http/dto"
	"github.com/freightflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler authenticates directory users and issues access tokens.
type AuthHandler struct {
	BaseHandler
	users      *appdir.Service[*domaindir.User]
	jwtService *auth.JWTService
	logger     *zap.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(users *appdir.Service[*domaindir.User], jwtService *auth.JWTService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{users: users, jwtService: jwtService, logger: logger}
}

// Login verifies credentials against the user directory and returns a
// bearer token pinned to the resolved tenant. Failed attempts all get
// the same answer; no probing which part was wrong.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid login payload")
		return
	}

	sess := middleware.GetSession(c)
	user, err := h.users.Get(c.Request.Context(), sess, keyForEmail(req.Email))
	if err != nil || !user.Active || !user.CheckPassword(req.Password) {
		h.logger.Warn("Login rejected",
			zap.String("email", req.Email),
			zap.String("tenant_id", sess.TenantID))
		h.Unauthorized(c, "Invalid credentials")
		return
	}

	token, err := h.jwtService.GenerateAccessToken(auth.GenerateTokenInput{
		TenantID: user.TenantID,
		UserID:   user.NaturalKey(),
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("User logged in",
		zap.String("user_id", user.NaturalKey()),
		zap.String("tenant_id", user.TenantID))
	h.Success(c, token)
}

func keyForEmail(email string) string {
	u := domaindir.User{Email: email}
	return u.NaturalKey()
}
