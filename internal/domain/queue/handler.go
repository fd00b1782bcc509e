package queue

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/store"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	staff.GET("/queue", h.GetQueue)
	staff.GET("/queue/:id", h.GetEntry)
	staff.POST("/queue", h.Enqueue)
	staff.PATCH("/queue/:id/status", h.Transition)
	staff.DELETE("/queue/:id", h.Remove)
}

type enqueueRequest struct {
	PatientID string `json:"patient_id"`
	Priority  int    `json:"priority"`
}

type transitionRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) Enqueue(c echo.Context) error {
	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tenantID := db.TenantFromContext(c.Request().Context())
	entry, err := h.svc.Enqueue(c.Request().Context(), tenantID, req.PatientID, req.Priority)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, entry)
}

// GetQueue returns the active queue in serving order with fresh positions.
func (h *Handler) GetQueue(c echo.Context) error {
	tenantID := db.TenantFromContext(c.Request().Context())
	entries, err := h.svc.ActiveOrdering(c.Request().Context(), tenantID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}

func (h *Handler) GetEntry(c echo.Context) error {
	tenantID := db.TenantFromContext(c.Request().Context())
	entry, err := h.svc.GetEntry(c.Request().Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "queue entry not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) Transition(c echo.Context) error {
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tenantID := db.TenantFromContext(c.Request().Context())
	entry, err := h.svc.Transition(c.Request().Context(), tenantID, c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "queue entry not found")
		}
		if strings.Contains(err.Error(), "invalid transition") {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) Remove(c echo.Context) error {
	tenantID := db.TenantFromContext(c.Request().Context())
	if err := h.svc.Remove(c.Request().Context(), tenantID, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "queue entry not found")
		}
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
