package billing

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/store"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "billing_clerk", "registrar"))
	readGroup.GET("/bills/:id", h.GetBill)
	readGroup.GET("/patients/:patient_id/bills", h.ListBillsByPatient)

	writeGroup := api.Group("", auth.RequireRole("admin", "billing_clerk"))
	writeGroup.POST("/bills", h.CreateBill)
	writeGroup.POST("/bills/:id/payments", h.RecordPayment)
}

func (h *Handler) CreateBill(c echo.Context) error {
	var b Bill
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tenantID := db.TenantFromContext(c.Request().Context())
	if err := h.svc.CreateBill(c.Request().Context(), tenantID, &b); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBill(c echo.Context) error {
	tenantID := db.TenantFromContext(c.Request().Context())
	b, err := h.svc.GetBill(c.Request().Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "bill not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBillsByPatient(c echo.Context) error {
	tenantID := db.TenantFromContext(c.Request().Context())
	bills, err := h.svc.ListBillsByPatient(c.Request().Context(), tenantID, c.Param("patient_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	pg := pagination.FromContext(c)
	start, end := pg.Window(len(bills))
	return c.JSON(http.StatusOK, pagination.NewResponse(bills[start:end], len(bills), pg.Limit, pg.Offset))
}

// RecordPayment applies a payment to a bill. Duplicate receipt numbers are
// rejected with 409 regardless of which bill they were first recorded on.
func (h *Handler) RecordPayment(c echo.Context) error {
	var p Payment
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.BillID = c.Param("id")
	tenantID := db.TenantFromContext(c.Request().Context())
	bill, err := h.svc.RecordPayment(c.Request().Context(), tenantID, &p)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "bill not found")
		case errors.Is(err, store.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "receipt already recorded")
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"payment": p,
		"bill":    bill,
	})
}
