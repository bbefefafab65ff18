package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushq/admissions-api/internal/models"
	"github.com/campushq/admissions-api/internal/service"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
	"github.com/campushq/admissions-api/pkg/response"
)

// MeritHandler exposes the settlement engine over HTTP.
type MeritHandler struct {
	merit   *service.MeritService
	exports *service.ExportService
}

// NewMeritHandler constructs MeritHandler. The exports service may be nil when
// export endpoints are disabled.
func NewMeritHandler(merit *service.MeritService, exports *service.ExportService) *MeritHandler {
	return &MeritHandler{merit: merit, exports: exports}
}

// Generate godoc
// @Summary Generate merit list for a course
// @Description Ranks pending eligible applications and settles admission outcomes
// @Tags Merit
// @Accept json
// @Produce json
// @Param payload body service.GenerateMeritListRequest true "Settlement payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /merit/generate [post]
func (h *MeritHandler) Generate(c *gin.Context) {
	var req service.GenerateMeritListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	summary, err := h.merit.GenerateMeritList(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// List godoc
// @Summary Get settled merit list
// @Tags Merit
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param year query int false "Filter by admission year"
// @Success 200 {object} response.Envelope
// @Router /merit [get]
func (h *MeritHandler) List(c *gin.Context) {
	query := meritQueryFromContext(c)
	items, err := h.merit.GetMeritList(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Export godoc
// @Summary Export merit list
// @Tags Merit
// @Produce text/csv
// @Produce application/pdf
// @Param courseId query string false "Filter by course"
// @Param year query int false "Filter by admission year"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} byte
// @Failure 404 {object} response.Envelope
// @Router /merit/export [get]
func (h *MeritHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	query := meritQueryFromContext(c)
	format := c.DefaultQuery("format", "csv")

	payload, contentType, err := h.exports.ExportMeritList(c.Request.Context(), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Download(c, fmt.Sprintf("merit-list.%s", format), contentType, payload)
}

func meritQueryFromContext(c *gin.Context) models.MeritListQuery {
	var query models.MeritListQuery
	query.CourseID = c.Query("courseId")
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		query.AdmissionYear = year
	}
	return query
}
