package middleware

import (
	"net/http"
	"strings"

	"github.com/freightflow/backend/internal/infrastructure/auth"
	applog "github.com/freightflow/backend/internal/infrastructure/logger"
	"github.com/freightflow/backend/internal/interfaces/http/dto"
	"github.com/freightflow/backend/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by the session middleware.
const (
	SessionKey    = "session"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Session validates the bearer token when present and resolves the
// tenant for every request. Resolution never fails: anonymous requests
// get a demo-scoped session, which is how the capture forms work before
// login.
func Session(jwtService *auth.JWTService, resolver *session.Resolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		userID := ""

		authHeader := c.GetHeader(AuthHeaderKey)
		if strings.HasPrefix(authHeader, BearerPrefix) {
			tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				logger.Warn("Rejected bearer token",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Invalid or expired token", GetRequestID(c)))
				return
			}
			userID = claims.UserID
			if claims.TenantID != "" {
				// The token already pins the tenant; skip the chain.
				sess := session.Context{
					TenantID:      claims.TenantID,
					UserID:        claims.UserID,
					Source:        session.SourceLicense,
					Authenticated: true,
				}
				setSession(c, sess)
				c.Next()
				return
			}
		}

		sess := resolver.Resolve(c.Request.Context(), userID)
		setSession(c, sess)
		c.Next()
	}
}

// setSession exposes the session to handlers and threads the tenant
// through the request context for log correlation.
func setSession(c *gin.Context, sess session.Context) {
	c.Set(SessionKey, sess)
	c.Request = c.Request.WithContext(applog.WithTenantID(c.Request.Context(), sess.TenantID))
}

// RequireAuth rejects requests whose session is not backed by a
// validated token. Mount after Session on mutating routes.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetSession(c).Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// GetSession returns the resolved session for the request. A missing
// session (middleware not mounted) yields a zero-value demo context.
func GetSession(c *gin.Context) session.Context {
	if v, ok := c.Get(SessionKey); ok {
		if sess, ok := v.(session.Context); ok {
			return sess
		}
	}
	return session.Demo(session.FallbackTenantID)
}
