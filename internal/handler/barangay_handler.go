package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bsorms/bsorms-api/internal/service"
	"github.com/bsorms/bsorms-api/pkg/response"
)

// BarangayHandler serves the barangay and report type catalogs.
type BarangayHandler struct {
	service *service.TaxonomyService
}

// NewBarangayHandler creates a new barangay handler.
func NewBarangayHandler(svc *service.TaxonomyService) *BarangayHandler {
	return &BarangayHandler{service: svc}
}

// List godoc
// @Summary List barangays
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /barangays [get]
func (h *BarangayHandler) List(c *gin.Context) {
	barangays, err := h.service.Barangays(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, barangays, nil)
}

// ReportTypes godoc
// @Summary List report types
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /report-types [get]
func (h *BarangayHandler) ReportTypes(c *gin.Context) {
	types, err := h.service.ReportTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}
