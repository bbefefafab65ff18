package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/admissions-api/internal/service"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
	"github.com/campushq/admissions-api/pkg/response"
)

// HostelHandler exposes hostel inventory and allocation endpoints.
type HostelHandler struct {
	hostels *service.HostelService
}

// NewHostelHandler constructs HostelHandler.
func NewHostelHandler(hostels *service.HostelService) *HostelHandler {
	return &HostelHandler{hostels: hostels}
}

// List godoc
// @Summary List hostels
// @Tags Hostels
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /hostels [get]
func (h *HostelHandler) List(c *gin.Context) {
	hostels, err := h.hostels.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hostels, nil)
}

// Create godoc
// @Summary Create hostel
// @Tags Hostels
// @Accept json
// @Produce json
// @Param payload body service.CreateHostelRequest true "Hostel payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /hostels [post]
func (h *HostelHandler) Create(c *gin.Context) {
	var req service.CreateHostelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	hostel, err := h.hostels.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hostel)
}

// MyAllocation godoc
// @Summary Get own hostel allocation
// @Tags Hostels
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /hostels/allocation [get]
func (h *HostelHandler) MyAllocation(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	allocation, err := h.hostels.MyAllocation(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// Vacate godoc
// @Summary Vacate own hostel room
// @Tags Hostels
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /hostels/allocation [delete]
func (h *HostelHandler) Vacate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.hostels.Vacate(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
