package api

import (
	"net/http"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createCustomerRequest struct {
	Name string `json:"name" binding:"required"`
}

type paymentsRequest struct {
	Payments []service.PaymentRequest `json:"payments" binding:"required,min=1,dive"`
}

type issueDateRequest struct {
	IssueDate time.Time `json:"issue_date"`
}

type replacementRequest struct {
	ProductID *int64    `json:"product_id,omitempty"`
	IssueDate time.Time `json:"issue_date"`
}

type creditRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type repairedRequest struct {
	Restock bool `json:"restock"`
}

type voidWarrantyRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// bindOptional decodes a body that may be absent
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bind(c, req)
}

func (h *Handler) saveSettings(c *gin.Context) {
	var req models.TenantSettings
	if !bind(c, &req) {
		return
	}
	settings, err := h.orchestrator.SaveSettings(c.Request.Context(), actorOf(c), &req)
	h.respond(c, http.StatusOK, settings, err)
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if !bind(c, &req) {
		return
	}
	customer, err := h.orchestrator.CreateCustomer(c.Request.Context(), actorOf(c), req.Name)
	h.respond(c, http.StatusCreated, customer, err)
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	customer, err := h.orchestrator.GetCustomer(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusOK, customer, err)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if !bind(c, &req) {
		return
	}
	product, err := h.orchestrator.CreateProduct(c.Request.Context(), actorOf(c), &req)
	h.respond(c, http.StatusCreated, product, err)
}

func (h *Handler) getProductStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	stock, err := h.orchestrator.GetProductStock(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusOK, stock, err)
}

func (h *Handler) receivePurchase(c *gin.Context) {
	var req service.ReceivePurchaseRequest
	if !bind(c, &req) {
		return
	}
	lot, err := h.orchestrator.ReceivePurchase(c.Request.Context(), actorOf(c), &req)
	h.respond(c, http.StatusCreated, lot, err)
}

func (h *Handler) reportDamagedStock(c *gin.Context) {
	var req service.ReportDamagedStockRequest
	if !bind(c, &req) {
		return
	}
	entry, err := h.orchestrator.ReportDamagedStock(c.Request.Context(), actorOf(c), &req)
	h.respond(c, http.StatusCreated, entry, err)
}

func (h *Handler) createInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.orchestrator.CreateInvoice(c.Request.Context(), actorOf(c), &req)
	h.respond(c, http.StatusCreated, inv, err)
}

func (h *Handler) getInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	details, err := h.orchestrator.GetInvoice(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusOK, details, err)
}

func (h *Handler) deleteInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orchestrator.DeleteInvoice(c.Request.Context(), actorOf(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) receivePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req paymentsRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.orchestrator.ReceivePayment(c.Request.Context(), actorOf(c), id, req.Payments)
	h.respond(c, http.StatusOK, inv, err)
}

func (h *Handler) createQuotation(c *gin.Context) {
	var req service.QuotationRequest
	if !bind(c, &req) {
		return
	}
	q, err := h.orchestrator.CreateQuotation(c.Request.Context(), actorOf(c), &req)
	h.respond(c, http.StatusCreated, q, err)
}

func (h *Handler) getQuotation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	q, err := h.orchestrator.GetQuotation(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusOK, q, err)
}

func (h *Handler) updateQuotation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.QuotationRequest
	if !bind(c, &req) {
		return
	}
	q, err := h.orchestrator.UpdateQuotation(c.Request.Context(), actorOf(c), id, &req)
	h.respond(c, http.StatusOK, q, err)
}

func (h *Handler) deleteQuotation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orchestrator.DeleteQuotation(c.Request.Context(), actorOf(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) convertQuotation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	inv, err := h.orchestrator.ConvertQuotation(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusCreated, inv, err)
}

func (h *Handler) createReturn(c *gin.Context) {
	var req service.CreateReturnRequest
	if !bind(c, &req) {
		return
	}
	ret, err := h.orchestrator.CreateReturn(c.Request.Context(), actorOf(c), &req)
	h.respond(c, http.StatusCreated, ret, err)
}

func (h *Handler) getReturn(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ret, err := h.orchestrator.GetReturn(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusOK, ret, err)
}

func (h *Handler) deleteReturn(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orchestrator.DeleteReturn(c.Request.Context(), actorOf(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createRepair(c *gin.Context) {
	var req service.CreateRepairRequest
	if !bind(c, &req) {
		return
	}
	r, err := h.orchestrator.CreateRepair(c.Request.Context(), actorOf(c), &req)
	h.respond(c, http.StatusCreated, r, err)
}

func (h *Handler) getRepair(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.orchestrator.GetRepair(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusOK, r, err)
}

func (h *Handler) startRepair(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.orchestrator.StartRepair(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusOK, r, err)
}

func (h *Handler) completeRepair(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req issueDateRequest
	if !bindOptional(c, &req) {
		return
	}
	inv, err := h.orchestrator.CompleteRepair(c.Request.Context(), actorOf(c), id, req.IssueDate)
	h.respond(c, http.StatusCreated, inv, err)
}

func (h *Handler) createReplacement(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req replacementRequest
	if !bindOptional(c, &req) {
		return
	}
	inv, err := h.orchestrator.CreateReplacement(c.Request.Context(), actorOf(c), id, req.ProductID, req.IssueDate)
	h.respond(c, http.StatusCreated, inv, err)
}

func (h *Handler) issueCredit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req creditRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.orchestrator.IssueCredit(c.Request.Context(), actorOf(c), id, req.Amount)
	h.respond(c, http.StatusCreated, t, err)
}

func (h *Handler) markRepaired(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req repairedRequest
	if !bindOptional(c, &req) {
		return
	}
	r, err := h.orchestrator.MarkRepaired(c.Request.Context(), actorOf(c), id, req.Restock)
	h.respond(c, http.StatusOK, r, err)
}

func (h *Handler) markUnrepairable(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.orchestrator.MarkUnrepairable(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusOK, r, err)
}

func (h *Handler) warrantyStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	st, err := h.orchestrator.WarrantyStatus(c.Request.Context(), actorOf(c), id)
	h.respond(c, http.StatusOK, st, err)
}

func (h *Handler) voidWarranty(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req voidWarrantyRequest
	if !bind(c, &req) {
		return
	}
	item, err := h.orchestrator.VoidWarranty(c.Request.Context(), actorOf(c), id, req.Reason)
	h.respond(c, http.StatusOK, item, err)
}
