package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/service"
	"backoffice-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	headerTenantID = "X-Tenant-ID"
	headerUserID   = "X-User-ID"
	actorKey       = "actor"
)

// Handler contains HTTP handlers
type Handler struct {
	orchestrator *service.Orchestrator
	idempotency  IdempotencyStore
	idemTTL      time.Duration
	changes      ChangeSubscriber
	logger       *zap.Logger
}

// Option configures optional collaborators of the handler
type Option func(*Handler)

// WithIdempotency replays responses for repeated Idempotency-Key headers
func WithIdempotency(store IdempotencyStore, ttl time.Duration) Option {
	return func(h *Handler) {
		h.idempotency = store
		h.idemTTL = ttl
	}
}

// WithChangeStream exposes the tenant's change events as server-sent events
func WithChangeStream(sub ChangeSubscriber) Option {
	return func(h *Handler) {
		h.changes = sub
	}
}

// NewHandler creates a new HTTP handler
func NewHandler(orchestrator *service.Orchestrator, opts ...Option) *Handler {
	h := &Handler{
		orchestrator: orchestrator,
		idemTTL:      24 * time.Hour,
		logger:       util.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(actorMiddleware())
	if h.idempotency != nil {
		v1.Use(idempotencyMiddleware(h.idempotency, h.idemTTL))
	}
	{
		v1.PUT("/settings", h.saveSettings)

		v1.POST("/customers", h.createCustomer)
		v1.GET("/customers/:id", h.getCustomer)

		v1.POST("/products", h.createProduct)
		v1.GET("/products/:id/stock", h.getProductStock)

		v1.POST("/inventory/purchases", h.receivePurchase)
		v1.POST("/inventory/damaged", h.reportDamagedStock)

		v1.POST("/invoices", h.createInvoice)
		v1.GET("/invoices/:id", h.getInvoice)
		v1.DELETE("/invoices/:id", h.deleteInvoice)
		v1.POST("/invoices/:id/payments", h.receivePayment)

		v1.POST("/quotations", h.createQuotation)
		v1.GET("/quotations/:id", h.getQuotation)
		v1.PUT("/quotations/:id", h.updateQuotation)
		v1.DELETE("/quotations/:id", h.deleteQuotation)
		v1.POST("/quotations/:id/convert", h.convertQuotation)

		v1.POST("/returns", h.createReturn)
		v1.GET("/returns/:id", h.getReturn)
		v1.DELETE("/returns/:id", h.deleteReturn)

		v1.POST("/repairs", h.createRepair)
		v1.GET("/repairs/:id", h.getRepair)
		v1.POST("/repairs/:id/start", h.startRepair)
		v1.POST("/repairs/:id/complete", h.completeRepair)
		v1.POST("/repairs/:id/replacement", h.createReplacement)
		v1.POST("/repairs/:id/credit", h.issueCredit)
		v1.POST("/repairs/:id/repaired", h.markRepaired)
		v1.POST("/repairs/:id/unrepairable", h.markUnrepairable)

		v1.GET("/sale-items/:id/warranty", h.warrantyStatus)
		v1.POST("/sale-items/:id/warranty/void", h.voidWarranty)

		if h.changes != nil {
			v1.GET("/events", h.streamChanges)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// actorMiddleware takes the caller identity set by the authentication proxy
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(headerTenantID)
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing " + headerTenantID + " header"})
			return
		}
		actor := service.Actor{TenantID: tenantID}
		if raw := c.GetHeader(headerUserID); raw != "" {
			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + headerUserID + " header"})
				return
			}
			actor.UserID = userID
		}
		c.Set(actorKey, actor)

		ctx := c.Request.Context()
		l := util.LoggerFromContext(ctx, nil).With(
			zap.String("tenant_id", actor.TenantID),
			zap.Int64("user_id", actor.UserID))
		c.Request = c.Request.WithContext(util.WithLogger(ctx, l))
		c.Next()
	}
}

func actorOf(c *gin.Context) service.Actor {
	actor, _ := c.MustGet(actorKey).(service.Actor)
	return actor
}

// pathID parses the :id path parameter, answering 400 when it is not a number
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body, answering 400 on failure
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// statusFor maps a workflow error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInsufficientStock),
		errors.Is(err, apperr.ErrReversalConflict),
		errors.Is(err, apperr.ErrAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrOwnershipMismatch):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		util.LoggerFromContext(c.Request.Context(), h.logger).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var stockErr *apperr.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["product_id"] = stockErr.ProductID
		body["requested"] = stockErr.Requested
		body["available"] = stockErr.Available
	}
	c.JSON(status, body)
}

// respond writes v with status, or the mapped error
func (h *Handler) respond(c *gin.Context, status int, v interface{}, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, v)
}

// requestLogger tags every request with a request id and carries a logger
// bound to it through the request context
func requestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(util.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(util.RequestIDHeader, requestID)

		l := base.With(zap.String("request_id", requestID))
		c.Request = c.Request.WithContext(util.WithLogger(c.Request.Context(), l))
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
