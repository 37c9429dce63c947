package risk

import (
	"net/http"

	"github.com/altscore/altscore/internal/features"
	"github.com/altscore/altscore/internal/logging"
	"github.com/altscore/altscore/internal/validation"
	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for fraud risk.
type Handler struct {
	service *Service
}

// NewHandler creates a new risk handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up risk routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/risk/transactions", h.AssessTransactions)
	r.GET("/risk/:userId", validation.UserIDParamMiddleware(), h.GetSummary)
}

// AssessRequest is the body of POST /v1/risk/transactions.
type AssessRequest struct {
	UserID       string                    `json:"user_id"`
	Transactions []features.RawTransaction `json:"transactions"`
}

// AssessTransactions handles POST /v1/risk/transactions
func (h *Handler) AssessTransactions(c *gin.Context) {
	var req AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Body must be a JSON object with a transactions array",
		})
		return
	}
	if errs := validation.Validate(
		validation.ValidUserID("user_id", req.UserID),
		validation.MaxItems("transactions", len(req.Transactions), validation.MaxTransactions),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	a, err := h.service.AssessTransactions(c.Request.Context(), req.UserID, req.Transactions)
	if err != nil {
		logging.L(c.Request.Context()).Error("risk assessment failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Transaction analysis failed",
		})
		return
	}

	c.JSON(http.StatusOK, a)
}

// GetSummary handles GET /v1/risk/:userId
func (h *Handler) GetSummary(c *gin.Context) {
	sum, err := h.service.Summary(c.Request.Context(), c.Param("userId"))
	if err != nil {
		logging.L(c.Request.Context()).Error("risk summary failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Risk summary failed",
		})
		return
	}
	c.JSON(http.StatusOK, sum)
}
