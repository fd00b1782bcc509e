package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/platform/store"
)

func newTestServer(t *testing.T, handler echo.HandlerFunc) (*echo.Echo, *Ledger) {
	t.Helper()
	ledger := NewLedger(NewStoreRecords(store.NewMemoryStore()), time.Hour)

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), db.TenantIDKey, "clinic-a")
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	e.Use(Middleware(ledger))
	e.POST("/api/v1/patients", handler)
	e.PUT("/api/v1/patients/:id", handler)
	e.GET("/api/v1/patients", handler)
	return e, ledger
}

func TestMiddlewareReplaysResponse(t *testing.T) {
	var calls int32
	e, _ := newTestServer(t, func(c echo.Context) error {
		atomic.AddInt32(&calls, 1)
		return c.JSON(http.StatusCreated, map[string]string{"id": "p1"})
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(HeaderKey, "req-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	if first.Code != http.StatusCreated {
		t.Fatalf("first request: status %d", first.Code)
	}
	if first.Header().Get("X-Idempotency-Replayed") != "" {
		t.Error("first response must not be marked replayed")
	}

	second := do()
	if second.Code != http.StatusCreated {
		t.Fatalf("second request: status %d", second.Code)
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("second response missing X-Idempotency-Replayed")
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("replayed body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("handler ran %d times, want 1", got)
	}
}

func TestMiddlewareKeyReuseAcrossEndpoints(t *testing.T) {
	e, _ := newTestServer(t, func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]string{"id": "p1"})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderKey, "req-2")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup request: status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/patients/p1", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderKey, "req-2")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("reused key on different operation: status %d, want 422", rec.Code)
	}
}

func TestMiddlewareIgnoresReadsAndMissingKey(t *testing.T) {
	var calls int32
	e, _ := newTestServer(t, func(c echo.Context) error {
		atomic.AddInt32(&calls, 1)
		return c.JSON(http.StatusOK, map[string]string{})
	})

	// GET with a key passes through untouched.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
		req.Header.Set(HeaderKey, "req-3")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET: status %d", rec.Code)
		}
	}
	// POST without a key executes every time.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST: status %d", rec.Code)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Errorf("handler ran %d times, want 4", got)
	}
}

func TestMiddlewareHandlerErrorNotCached(t *testing.T) {
	var calls int32
	e, _ := newTestServer(t, func(c echo.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return echo.NewHTTPError(http.StatusInternalServerError, "transient")
		}
		return c.JSON(http.StatusCreated, map[string]string{"id": "p1"})
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(HeaderKey, "req-4")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusInternalServerError {
		t.Fatalf("first request: status %d", rec.Code)
	}
	if rec := do(); rec.Code != http.StatusCreated {
		t.Errorf("retry after handler error: status %d, want 201", rec.Code)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("handler ran %d times, want 2", got)
	}
}
