package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evotools/evo-dispatch/internal/domain"
	"github.com/evotools/evo-dispatch/internal/service"
	"github.com/evotools/evo-dispatch/pkg/response"
	"github.com/evotools/evo-dispatch/pkg/validator"
)

type JobHandler struct {
	service *service.JobService
}

func NewJobHandler(service *service.JobService) *JobHandler {
	return &JobHandler{service: service}
}

type ScheduleTextRequest struct {
	Instance    string    `json:"instance" validate:"required"`
	Number      string    `json:"number" validate:"required"`
	Text        string    `json:"text" validate:"required"`
	Delay       int       `json:"delay,omitempty" validate:"omitempty,min=0"`
	LinkPreview bool      `json:"linkPreview,omitempty"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required,future"`
}

type ScheduleMediaRequest struct {
	Instance    string    `json:"instance" validate:"required"`
	Number      string    `json:"number" validate:"required"`
	MediaType   string    `json:"mediatype" validate:"required,oneof=image video document"`
	MimeType    string    `json:"mimetype" validate:"required"`
	Caption     string    `json:"caption,omitempty"`
	Media       string    `json:"media" validate:"required,url"`
	FileName    string    `json:"fileName,omitempty"`
	Delay       int       `json:"delay,omitempty" validate:"omitempty,min=0"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required,future"`
}

// ScheduleText godoc
// @Summary Schedule a text message
// @Description Creates a pending text job to be dispatched when its scheduled time elapses
// @Tags jobs
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Param job body ScheduleTextRequest true "Job to schedule"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/jobs/text [post]
func (h *JobHandler) ScheduleText(c echo.Context) error {
	var req ScheduleTextRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	msg := domain.TextMessage{
		Number:      req.Number,
		Text:        req.Text,
		Delay:       req.Delay,
		LinkPreview: req.LinkPreview,
	}

	job, err := h.service.ScheduleText(c.Request().Context(), req.Instance, msg, req.ScheduledAt)
	if err != nil {
		return response.BadRequest(c, err)
	}

	return response.Created(c, "Job scheduled successfully", job)
}

// ScheduleMedia godoc
// @Summary Schedule a media message
// @Description Creates a pending media job (image, video or document by URL)
// @Tags jobs
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Param job body ScheduleMediaRequest true "Job to schedule"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Router /api/v1/jobs/media [post]
func (h *JobHandler) ScheduleMedia(c echo.Context) error {
	var req ScheduleMediaRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	msg := domain.MediaMessage{
		Number:    req.Number,
		MediaType: req.MediaType,
		MimeType:  req.MimeType,
		Caption:   req.Caption,
		Media:     req.Media,
		FileName:  req.FileName,
		Delay:     req.Delay,
	}

	job, err := h.service.ScheduleMedia(c.Request().Context(), req.Instance, msg, req.ScheduledAt)
	if err != nil {
		return response.BadRequest(c, err)
	}

	return response.Created(c, "Job scheduled successfully", job)
}

// ListJobs godoc
// @Summary List scheduled jobs
// @Description Retrieves a paginated list of jobs in insertion order with optional status filter
// @Tags jobs
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param status query string false "Filter by status (pending, sent, failed)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/jobs [get]
func (h *JobHandler) ListJobs(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	statusStr := c.QueryParam("status")

	// Convert status string to pointer (optional filter).
	var status *domain.JobStatus
	if statusStr != "" {
		parsedStatus := domain.JobStatus(statusStr)
		status = &parsedStatus
	}

	jobs, totalCount, err := h.service.ListJobs(c.Request().Context(), status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, jobs, page, pageSize, totalCount)
}

// RemoveJob godoc
// @Summary Remove a scheduled job
// @Description Deletes a job regardless of status; removing an unknown id is not an error
// @Tags jobs
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Param id path string true "Job ID"
// @Success 204
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/jobs/{id} [delete]
func (h *JobHandler) RemoveJob(c echo.Context) error {
	id := c.Param("id")

	if err := h.service.RemoveJob(c.Request().Context(), id); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.NoContent(c)
}

// GetStats godoc
// @Summary Get job statistics
// @Description Returns count of jobs by status
// @Tags jobs
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/jobs/stats [get]
func (h *JobHandler) GetStats(c echo.Context) error {
	pending, sent, failed, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"pending": pending,
		"sent":    sent,
		"failed":  failed,
		"total":   pending + sent + failed,
	})
}

// GetCachedJobs godoc
// @Summary Get recently sent jobs from the cache
// @Description Returns the sent-job entries still within their cache TTL
// @Tags jobs
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/jobs/cached [get]
func (h *JobHandler) GetCachedJobs(c echo.Context) error {
	cached, err := h.service.GetCachedJobs(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, cached)
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	// Page
	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	// Page size
	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
