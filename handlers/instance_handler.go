package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/evotools/evo-dispatch/pkg/gateway"
	"github.com/evotools/evo-dispatch/pkg/response"
)

// InstanceHandler exposes a read-only view of the gateway's WhatsApp
// sessions so operators can verify an instance is connected before
// scheduling against it.
type InstanceHandler struct {
	gateway *gateway.Client
}

func NewInstanceHandler(gw *gateway.Client) *InstanceHandler {
	return &InstanceHandler{gateway: gw}
}

// ListInstances godoc
// @Summary List gateway instances
// @Description Fetches the WhatsApp sessions known to the Evolution API
// @Tags instances
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/instances [get]
func (h *InstanceHandler) ListInstances(c echo.Context) error {
	instances, err := h.gateway.FetchInstances(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, instances)
}

// ConnectionState godoc
// @Summary Get an instance's connection state
// @Description Fetches the raw connection state of one instance from the gateway
// @Tags instances
// @Accept json
// @Produce json
// @Param apikey header string true "API key for jobs"
// @Param name path string true "Instance name"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/instances/{name}/state [get]
func (h *InstanceHandler) ConnectionState(c echo.Context) error {
	state, err := h.gateway.ConnectionState(c.Request().Context(), c.Param("name"))
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, state)
}
