package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/evotools/evo-dispatch/environments"
	"github.com/evotools/evo-dispatch/internal/dispatcher"
	"github.com/evotools/evo-dispatch/pkg/response"
	"github.com/evotools/evo-dispatch/pkg/validator"
)

type DispatcherHandler struct {
	dispatcher *dispatcher.Dispatcher
	ctx        context.Context
	config     *environments.Config
}

type StartDispatcherRequest struct {
	IntervalSeconds *int `json:"intervalSeconds,omitempty" validate:"omitempty,min=1"`
}

func NewDispatcherHandler(
	d *dispatcher.Dispatcher,
	ctx context.Context,
	cfg *environments.Config,
) *DispatcherHandler {
	return &DispatcherHandler{
		dispatcher: d,
		ctx:        ctx,
		config:     cfg,
	}
}

// Start godoc
// @Summary Start the dispatch loop
// @Description Starts the recurring due-job scan with an optional interval override
// @Tags dispatcher
// @Accept json
// @Produce json
// @Param apikey header string true "API key for dispatcher"
// @Param request body StartDispatcherRequest false "Dispatcher parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatcher/start [post]
func (h *DispatcherHandler) Start(c echo.Context) error {
	if h.dispatcher.IsRunning() {
		return response.OkWithMessage(c, "Dispatcher is already running", h.dispatcher.Status())
	}

	var req StartDispatcherRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	interval := h.config.Dispatch.ScanInterval
	if req.IntervalSeconds != nil {
		interval = time.Duration(*req.IntervalSeconds) * time.Second
	}

	if err := h.dispatcher.StartWithInterval(h.ctx, interval); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Dispatcher started successfully", h.dispatcher.Status())
}

// Stop godoc
// @Summary Stop the dispatch loop
// @Description Stops the recurring due-job scan
// @Tags dispatcher
// @Accept json
// @Produce json
// @Param apikey header string true "API key for dispatcher"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatcher/stop [post]
func (h *DispatcherHandler) Stop(c echo.Context) error {
	if !h.dispatcher.IsRunning() {
		return response.OkWithMessage(c, "Dispatcher is already stopped", h.dispatcher.Status())
	}

	if err := h.dispatcher.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Dispatcher stopped successfully", h.dispatcher.Status())
}

// Status godoc
// @Summary Get dispatcher status
// @Description Returns the current status and counters of the dispatch loop
// @Tags dispatcher
// @Accept json
// @Produce json
// @Param apikey header string true "API key for dispatcher"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/dispatcher/status [get]
func (h *DispatcherHandler) Status(c echo.Context) error {
	return response.Ok(c, h.dispatcher.Status())
}
