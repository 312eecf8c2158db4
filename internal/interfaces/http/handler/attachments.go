package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/freightflow/backend/internal/interfaces/http/dto"
	"github.com/freightflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AttachmentURLSigner issues short-lived download URLs for stored
// payment proofs.
type AttachmentURLSigner interface {
	DownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// AttachmentHandler serves download links for offloaded attachments.
type AttachmentHandler struct {
	BaseHandler
	signer  AttachmentURLSigner
	expires time.Duration
	logger  *zap.Logger
}

// NewAttachmentHandler creates the handler. expires bounds how long a
// returned link stays valid.
func NewAttachmentHandler(signer AttachmentURLSigner, expires time.Duration, logger *zap.Logger) *AttachmentHandler {
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentHandler{signer: signer, expires: expires, logger: logger}
}

// Download answers with a presigned URL for one attachment. Storage keys
// are tenant-prefixed, so a session can only sign its own tenant's keys.
// GET /api/v1/attachments/*storageKey
func (h *AttachmentHandler) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("storageKey"), "/")
	if key == "" {
		h.BadRequest(c, "Missing storage key")
		return
	}

	sess := middleware.GetSession(c)
	if !strings.HasPrefix(key, sess.TenantID+"/") {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(
			dto.ErrCodeNotFound, "Attachment not found", middleware.GetRequestID(c)))
		return
	}

	url, expiresAt, err := h.signer.DownloadURL(c.Request.Context(), key, h.expires)
	if err != nil {
		h.logger.Warn("Attachment URL signing failed",
			zap.String("storage_key", key),
			zap.Error(err))
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(
			dto.ErrCodeNotFound, "Attachment not found", middleware.GetRequestID(c)))
		return
	}

	h.Success(c, gin.H{"url": url, "expiresAt": expiresAt})
}
