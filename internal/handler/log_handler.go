package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bsorms/bsorms-api/internal/models"
	"github.com/bsorms/bsorms-api/internal/service"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
	"github.com/bsorms/bsorms-api/pkg/response"
)

// LogHandler handles audit trail endpoints.
type LogHandler struct {
	service *service.LogService
}

// NewLogHandler creates a new log handler.
func NewLogHandler(svc *service.LogService) *LogHandler {
	return &LogHandler{service: svc}
}

type bulkRemoveRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// List godoc
// @Summary Query the audit trail
// @Description Paginated audit log query. Secretaries see only their own entries.
// @Tags Logs
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param search query string false "Search term"
// @Param action query string false "Action code filter"
// @Param user_id query string false "Acting user filter"
// @Param start_date query string false "Inclusive start date (YYYY-MM-DD)"
// @Param end_date query string false "Inclusive end date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /logs [get]
func (h *LogHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.LogFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}
	filter.Search = c.Query("search")
	filter.Action = c.Query("action")
	if userID := c.Query("user_id"); userID != "" {
		filter.UserID = &userID
	}
	if start := c.Query("start_date"); start != "" {
		if t, err := time.Parse("2006-01-02", start); err == nil {
			filter.StartDate = &t
		}
	}
	if end := c.Query("end_date"); end != "" {
		if t, err := time.Parse("2006-01-02", end); err == nil {
			filter.EndDate = &t
		}
	}

	result, err := h.service.Query(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"logs": result.Entries, "actions": result.Actions}, result.Pagination)
}

// BulkRemove godoc
// @Summary Delete audit entries in a date range
// @Description Removes every entry whose timestamp falls in [start_date, end_date]. Staff only.
// @Tags Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body bulkRemoveRequest true "Date range"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /logs [delete]
func (h *LogHandler) BulkRemove(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req bulkRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	removed, err := h.service.BulkRemove(c.Request.Context(), actor, req.StartDate, req.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}
