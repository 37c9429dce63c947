package ingest

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/altscore/altscore/internal/features"
	"github.com/altscore/altscore/internal/logging"
	"github.com/altscore/altscore/internal/metrics"
	"github.com/altscore/altscore/internal/validation"
	"github.com/gin-gonic/gin"
)

// Handler provides the statement import endpoint.
type Handler struct{}

// NewHandler creates a new ingest handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes sets up ingest routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions/import", validation.RequestSizeMiddleware(validation.MaxUploadSize), h.Import)
}

// Parse decodes a statement in the given format.
func Parse(format Format, r io.Reader) (*Statement, error) {
	if format == FormatText {
		return ParseText(r)
	}
	return ParseCSV(r)
}

// Import handles POST /v1/transactions/import. It accepts a multipart "file"
// field or a raw text/csv or text/plain body.
func (h *Handler) Import(c *gin.Context) {
	format, body, closeFn, err := h.source(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	defer closeFn()

	st, err := Parse(format, body)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues(string(format), "rejected").Inc()
		switch {
		case errors.Is(err, ErrEmpty), errors.Is(err, ErrNoHeader):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unreadable_statement", "message": err.Error()})
		default:
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too_large", "message": "Statement exceeds upload limit"})
				return
			}
			logging.L(c.Request.Context()).Warn("statement import failed", "format", format, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_statement", "message": err.Error()})
		}
		return
	}
	if len(st.Transactions) > validation.MaxTransactions {
		metrics.ImportsTotal.WithLabelValues(string(format), "rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": "too many transactions"})
		return
	}
	metrics.ImportsTotal.WithLabelValues(string(format), "ok").Inc()

	parsed := features.Parse(st.Transactions)
	logging.L(c.Request.Context()).Info("statement imported",
		"format", format,
		"transactions", len(st.Transactions),
		"skipped", st.Skipped,
	)
	c.JSON(http.StatusOK, gin.H{
		"format":       st.Format,
		"transactions": st.Transactions,
		"count":        len(st.Transactions),
		"skipped":      st.Skipped,
		"features":     features.Extract(parsed),
	})
}

// source picks the statement reader and its format from the request.
func (h *Handler) source(c *gin.Context) (Format, io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "multipart/form-data" {
		fh, err := c.FormFile("file")
		if err != nil {
			return "", nil, nil, errors.New(`multipart upload must carry a "file" field`)
		}
		f, err := fh.Open()
		if err != nil {
			return "", nil, nil, err
		}
		format := FormatCSV
		if ext := strings.ToLower(filepath.Ext(fh.Filename)); ext == ".txt" {
			format = FormatText
		}
		return format, f, func() { _ = f.Close() }, nil
	}

	switch mediaType {
	case "text/plain":
		return FormatText, c.Request.Body, func() {}, nil
	case "text/csv", "application/csv":
		return FormatCSV, c.Request.Body, func() {}, nil
	}
	return "", nil, nil, errors.New("send a multipart file, text/csv or text/plain body")
}
