package handler

import (
	ledgerapp "github.com/freightflow/backend/internal/application/ledger"
	"github.com/freightflow/backend/internal/interfaces/http/dto"
	"github.com/freightflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LedgerHandler exposes the receivables ledger: the merged invoice view,
// payment mutations, the bulk clear and the autofill bridge.
type LedgerHandler struct {
	BaseHandler
	svc      *ledgerapp.ReconciliationService
	autofill *ledgerapp.AutofillService
	logger   *zap.Logger
}

// NewLedgerHandler creates the ledger handler.
func NewLedgerHandler(svc *ledgerapp.ReconciliationService, autofill *ledgerapp.AutofillService, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{svc: svc, autofill: autofill, logger: logger}
}

// ListReceivables runs the merge and returns the normalized invoice view.
// GET /api/v1/receivables
func (h *LedgerHandler) ListReceivables(c *gin.Context) {
	sess := middleware.GetSession(c)
	records, err := h.svc.Reconcile(c.Request.Context(), sess)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, records, dto.Meta{Total: len(records)})
}

// GetReceivable returns one receivable by registration id.
// GET /api/v1/receivables/:registrationId
func (h *LedgerHandler) GetReceivable(c *gin.Context) {
	sess := middleware.GetSession(c)
	rec, err := h.svc.GetReceivable(c.Request.Context(), sess, c.Param("registrationId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// RegisterPayment applies a payment to a receivable.
// POST /api/v1/receivables/:registrationId/payments
func (h *LedgerHandler) RegisterPayment(c *gin.Context) {
	var req dto.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid payment payload: "+err.Error())
		return
	}

	sess := middleware.GetSession(c)
	rec, err := h.svc.RegisterPayment(c.Request.Context(), sess, c.Param("registrationId"), req.Entry())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rec)
}

// UpdatePayment replaces one payment entry on a receivable.
// PUT /api/v1/receivables/:registrationId/payments
func (h *LedgerHandler) UpdatePayment(c *gin.Context) {
	var req dto.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid payment payload: "+err.Error())
		return
	}

	sess := middleware.GetSession(c)
	rec, err := h.svc.UpdatePaymentDetails(c.Request.Context(), sess, c.Param("registrationId"), req.Index, req.Entry())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// BulkClear wipes the tenant's receivables. Requires confirm=true in the
// body; the service rejects anything else.
// POST /api/v1/receivables/clear
func (h *LedgerHandler) BulkClear(c *gin.Context) {
	var req dto.BulkClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	sess := middleware.GetSession(c)
	if err := h.svc.BulkClear(c.Request.Context(), sess, req.Confirm); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AutofillLookup resolves the cross-module records for a registration.
// GET /api/v1/autofill/:registrationId
func (h *LedgerHandler) AutofillLookup(c *gin.Context) {
	sess := middleware.GetSession(c)
	result := h.autofill.Lookup(c.Request.Context(), sess, c.Param("registrationId"))
	h.Success(c, result)
}
