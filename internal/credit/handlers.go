package credit

import (
	"errors"
	"net/http"

	"github.com/altscore/altscore/internal/features"
	"github.com/altscore/altscore/internal/logging"
	"github.com/altscore/altscore/internal/pagination"
	"github.com/altscore/altscore/internal/validation"
	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for credit scoring.
type Handler struct {
	service *Service
}

// NewHandler creates a new credit handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up credit routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/credit/score", h.Score)
	r.GET("/credit/:userId/history", validation.UserIDParamMiddleware(), h.History)
	r.GET("/scores/:id", h.GetScore)
	r.POST("/features", h.ExtractFeatures)
}

// Score handles POST /v1/credit/score
func (h *Handler) Score(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Body must be a JSON object with a transactions array",
		})
		return
	}
	if errs := validation.Validate(
		validation.ValidUserID("userId", req.UserID),
		validation.MaxItems("transactions", len(req.Transactions), validation.MaxTransactions),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	result, err := h.service.Score(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidMode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_mode", "message": err.Error()})
		case errors.Is(err, ErrModelUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model_unavailable", "message": err.Error()})
		default:
			logging.L(c.Request.Context()).Error("credit scoring failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to score"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// History handles GET /v1/credit/:userId/history
func (h *Handler) History(c *gin.Context) {
	limit := pagination.ParseLimit(c.Query("limit"))

	scores, next, more, err := h.service.History(c.Request.Context(), c.Param("userId"), limit, c.Query("cursor"))
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor", "message": err.Error()})
			return
		}
		logging.L(c.Request.Context()).Error("credit history failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to list scores"})
		return
	}
	if scores == nil {
		scores = []*Result{}
	}

	c.JSON(http.StatusOK, gin.H{
		"scores":      scores,
		"count":       len(scores),
		"next_cursor": next,
		"has_more":    more,
	})
}

// GetScore handles GET /v1/scores/:id
func (h *Handler) GetScore(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Score not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type featuresRequest struct {
	Transactions []features.RawTransaction `json:"transactions"`
}

// ExtractFeatures handles POST /v1/features
func (h *Handler) ExtractFeatures(c *gin.Context) {
	var req featuresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Body must be a JSON object with a transactions array",
		})
		return
	}
	if len(req.Transactions) > validation.MaxTransactions {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": "too many transactions",
		})
		return
	}

	parsed := features.Parse(req.Transactions)
	c.JSON(http.StatusOK, gin.H{
		"features": features.Extract(parsed),
		"parsed":   len(parsed),
		"dropped":  len(req.Transactions) - len(parsed),
	})
}
