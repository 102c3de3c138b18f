package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evotools/evo-dispatch/internal/campaign"
	"github.com/evotools/evo-dispatch/internal/domain"
	"github.com/evotools/evo-dispatch/internal/service"
	"github.com/evotools/evo-dispatch/pkg/response"
	"github.com/evotools/evo-dispatch/pkg/validator"
)

type CampaignHandler struct {
	service *service.JobService
}

func NewCampaignHandler(service *service.JobService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

type ScheduleCampaignRequest struct {
	Instance     string    `json:"instance" validate:"required"`
	Template     string    `json:"template"`
	CSV          string    `json:"csv" validate:"required"`
	ScheduledAt  time.Time `json:"scheduledAt" validate:"required,future"`
	DelaySeconds int       `json:"delaySeconds,omitempty" validate:"omitempty,min=0"`
}

type PreviewRequest struct {
	Instance string            `json:"instance" validate:"required"`
	Template string            `json:"template" validate:"required"`
	Contact  map[string]string `json:"contact" validate:"required"`
}

type ImportRequest struct {
	CSV string `json:"csv" validate:"required"`
}

// GetTemplate godoc
// @Summary Download the import CSV template
// @Description Returns the canonical contact CSV with sample rows
// @Tags campaigns
// @Produce plain
// @Param apikey header string true "API key for jobs"
// @Success 200 {string} string
// @Router /api/v1/campaigns/template [get]
func (h *CampaignHandler) GetTemplate(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="contatos.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(campaign.Template()))
}

// ImportContacts godoc
// @Summary Parse a contact CSV
// @Description Parses the uploaded CSV and returns the contact records without scheduling anything
// @Tags campaigns
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Param request body ImportRequest true "CSV content"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/campaigns/import [post]
func (h *CampaignHandler) ImportContacts(c echo.Context) error {
	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	contacts, err := campaign.ParseContacts(req.CSV)
	if err != nil {
		return response.BadRequest(c, err)
	}

	return response.Ok(c, contacts)
}

// Preview godoc
// @Summary Preview a rendered message
// @Description Resolves the template for one contact, including live name lookup
// @Tags campaigns
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Param request body PreviewRequest true "Template and contact"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/campaigns/preview [post]
func (h *CampaignHandler) Preview(c echo.Context) error {
	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	rendered := h.service.RenderPreview(
		c.Request().Context(),
		req.Instance,
		req.Template,
		domain.Contact(req.Contact),
	)

	return response.Ok(c, map[string]any{
		"rendered": rendered,
	})
}

// ScheduleCampaign godoc
// @Summary Schedule a bulk campaign
// @Description Parses the CSV, renders the template per contact and schedules one job per contact
// @Tags campaigns
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Param request body ScheduleCampaignRequest true "Campaign definition"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) ScheduleCampaign(c echo.Context) error {
	var req ScheduleCampaignRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	result, err := h.service.ScheduleCampaign(
		c.Request().Context(),
		req.Instance,
		req.Template,
		req.CSV,
		req.ScheduledAt,
		req.DelaySeconds,
	)
	if err != nil {
		return response.BadRequest(c, err)
	}

	return response.Created(c, "Campaign scheduled successfully", result)
}
