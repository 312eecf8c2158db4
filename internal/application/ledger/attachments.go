package ledger

import (
	"context"
	"encoding/base64"
	"path"

	ledgerdomain "github.com/freightflow/backend/internal/domain/ledger"
	"github.com/freightflow/backend/internal/domain/shared"
	"github.com/freightflow/backend/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlobStore uploads payment proof files to object storage.
type BlobStore interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
}

// AttachmentOffloader moves inline attachment payloads into object
// storage before the payment is persisted, so the receivable document
// carries only a storage key instead of the base64 blob.
type AttachmentOffloader struct {
	store  BlobStore
	logger *zap.Logger
}

// NewAttachmentOffloader creates an offloader over the given blob store.
func NewAttachmentOffloader(store BlobStore, logger *zap.Logger) *AttachmentOffloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentOffloader{store: store, logger: logger}
}

// Offload uploads every inline attachment of the entry and replaces the
// payload with its storage key. Keys are scoped tenant/registration/payment
// so all proofs of one invoice live together. Attachments that already
// carry a storage key are left untouched.
func (o *AttachmentOffloader) Offload(ctx context.Context, sess session.Context, registrationID string, entry *ledgerdomain.PaymentEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	for i := range entry.Attachments {
		att := &entry.Attachments[i]
		if att.Data == "" || att.StorageKey != "" {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			return shared.NewDomainError("INVALID_ATTACHMENT", "Attachment payload is not valid base64")
		}

		key := path.Join(sess.TenantID, registrationID, entry.ID.String(), att.Name)
		if err := o.store.Upload(ctx, key, raw, att.ContentType); err != nil {
			o.logger.Warn("Attachment upload failed",
				zap.String("registration_id", registrationID),
				zap.String("attachment", att.Name),
				zap.Error(err))
			return shared.NewDomainError("STORE_UNAVAILABLE", "Could not store the payment attachment")
		}

		att.StorageKey = key
		att.Data = ""
		att.Size = int64(len(raw))

		o.logger.Debug("Attachment offloaded",
			zap.String("storage_key", key),
			zap.Int("bytes", len(raw)))
	}
	return nil
}
