package sync

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/db"
)

type Handler struct {
	reconciler *Reconciler
}

func NewHandler(reconciler *Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	grp.POST("/sync", h.ProcessBatch)
}

// ProcessBatch accepts an offline action batch. The response is always 200
// with per-action results; individual failures never fail the request.
func (h *Handler) ProcessBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Actions) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "actions must not be empty")
	}
	tenantID := db.TenantFromContext(c.Request().Context())
	resp, err := h.reconciler.ProcessBatch(c.Request().Context(), tenantID, &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}
