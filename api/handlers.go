// Package api exposes the analyzer over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/metatags/logging"
	"github.com/seo-optimizer/metatags/middleware"
	"github.com/seo-optimizer/metatags/preview"
	"github.com/seo-optimizer/metatags/service"
	"github.com/seo-optimizer/metatags/stats"
	"github.com/seo-optimizer/metatags/store"
)

// MonthlyStats is the source of the monthly outcome counters
type MonthlyStats interface {
	service.OutcomeRecorder
	GetCurrentStats() stats.MonthlyStats
}

// Handler serves the /api routes
type Handler struct {
	svc      *service.Service
	requests *logging.Statistics
	monthly  MonthlyStats
	log      logrus.FieldLogger
}

func NewHandler(svc *service.Service, requests *logging.Statistics, monthly MonthlyStats, log logrus.FieldLogger) *Handler {
	return &Handler{
		svc:      svc,
		requests: requests,
		monthly:  monthly,
		log:      log,
	}
}

// Register mounts the API routes on r
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.POST("/analyze", h.analyze)
		api.GET("/analyses", h.listAnalyses)
		api.GET("/analyses/:id", h.getAnalysis)
		api.GET("/analyses/:id/preview", h.getPreview)
		api.GET("/statistics", h.statistics)
	}
}

type analyzeRequest struct {
	URL string `json:"url" binding:"required,url"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (h *Handler) analyze(c *gin.Context) {
	var request analyzeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.monthly.Record(stats.OutcomeValidationFailed)
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid URL format",
			"details": bindingDetails(err),
		})
		return
	}
	c.Set(middleware.AnalyzedURLKey, request.URL)

	report, err := h.svc.SubmitAnalysis(c.Request.Context(), request.URL)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Invalid URL format",
				"details": []*service.ValidationError{verr},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// bindingDetails turns a binding failure into field/reason pairs
func bindingDetails(err error) []service.ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []service.ValidationError{{Field: "body", Reason: "must be a JSON object with a url field"}}
	}

	details := make([]service.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		reason := "is invalid"
		switch fe.Tag() {
		case "required":
			reason = "is required"
		case "url":
			reason = "must be a valid URL"
		}
		details = append(details, service.ValidationError{
			Field:  strings.ToLower(fe.Field()),
			Reason: reason,
		})
	}
	return details
}

func (h *Handler) listAnalyses(c *gin.Context) {
	if pageURL := c.Query("url"); pageURL != "" {
		record, err := h.svc.LookupURL(c.Request.Context(), pageURL)
		if err != nil {
			h.storeError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Invalid limit",
				"details": []service.ValidationError{{Field: "limit", Reason: "must be a positive integer"}},
			})
			return
		}
		limit = n
	}

	records, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) lookup(c *gin.Context) (store.StoredRecord, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid analysis id",
			"details": []service.ValidationError{{Field: "id", Reason: "must be a positive integer"}},
		})
		return store.StoredRecord{}, false
	}

	record, err := h.svc.Lookup(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return store.StoredRecord{}, false
	}
	return record, true
}

func (h *Handler) getAnalysis(c *gin.Context) {
	if record, ok := h.lookup(c); ok {
		c.JSON(http.StatusOK, record)
	}
}

func (h *Handler) getPreview(c *gin.Context) {
	if record, ok := h.lookup(c); ok {
		c.JSON(http.StatusOK, preview.Build(&record.AnalysisReport))
	}
}

func (h *Handler) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"message": "Analysis not found",
		})
		return
	}

	h.log.WithError(err).Error("store lookup failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"message": "Failed to fetch analyses",
	})
}

func (h *Handler) statistics(c *gin.Context) {
	snapshot := h.requests.Snapshot()
	snapshot["monthly"] = h.monthly.GetCurrentStats()
	c.JSON(http.StatusOK, snapshot)
}
