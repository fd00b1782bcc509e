package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/db"
)

// HeaderKey is the request header carrying the client's idempotency key.
const HeaderKey = "Idempotency-Key"

// cachedResponse is the HTTP outcome stored as a ledger response.
type cachedResponse struct {
	Method     string      `json:"method"`
	Path       string      `json:"path"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
}

// Middleware gives every mutating endpoint the uniform idempotency header
// contract: an identical (tenant, Idempotency-Key) within the retention
// window replays the cached prior response and causes no further mutation.
//
// Behaviour:
//   - Requests without a mutating method or without the header pass through.
//   - A key reused for a different method or path returns 422, preventing a
//     stale client from silently receiving an unrelated cached response.
//   - Replayed responses carry X-Idempotency-Replayed: true.
//   - Handler errors are not cached; the client may retry them.
func Middleware(ledger *Ledger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			switch method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return next(c)
			}

			key := c.Request().Header.Get(HeaderKey)
			if key == "" {
				return next(c)
			}
			tenantID := db.TenantFromContext(c.Request().Context())
			if tenantID == "" {
				return next(c)
			}

			path := c.Request().URL.Path

			// Only the caller whose operation actually ran has written a
			// response; everyone else (replay or collapsed concurrent
			// request) gets the cached one written below.
			executed := false
			response, _, err := ledger.Execute(c.Request().Context(), tenantID, key, func(_ context.Context) (json.RawMessage, error) {
				executed = true
				return captureResponse(c, next, method, path)
			})
			if err != nil {
				return err
			}
			if executed {
				return nil
			}

			var cached cachedResponse
			if err := json.Unmarshal(response, &cached); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "corrupt idempotency record")
			}
			if cached.Method != method || cached.Path != path {
				return echo.NewHTTPError(http.StatusUnprocessableEntity,
					"idempotency key was already used for a different operation")
			}

			resp := c.Response()
			for k, vals := range cached.Headers {
				for _, v := range vals {
					resp.Header().Set(k, v)
				}
			}
			resp.Header().Set("X-Idempotency-Replayed", "true")
			resp.WriteHeader(cached.StatusCode)
			_, werr := resp.Write(cached.Body)
			return werr
		}
	}
}

// captureResponse executes the handler with a recording writer and packages
// the written response for the ledger.
func captureResponse(c echo.Context, next echo.HandlerFunc, method, path string) (json.RawMessage, error) {
	origWriter := c.Response().Writer
	rec := &responseRecorder{
		ResponseWriter: origWriter,
		body:           &bytes.Buffer{},
		statusCode:     http.StatusOK,
		headers:        make(http.Header),
	}
	c.Response().Writer = rec

	err := next(c)
	c.Response().Writer = origWriter
	if err != nil {
		return nil, err
	}

	capturedHeaders := make(http.Header)
	for k, vals := range rec.Header() {
		capturedHeaders[k] = vals
	}

	// Forward the captured response to the real client.
	for k, vals := range capturedHeaders {
		for _, v := range vals {
			origWriter.Header().Set(k, v)
		}
	}
	origWriter.WriteHeader(rec.statusCode)
	if _, err := origWriter.Write(rec.body.Bytes()); err != nil {
		return nil, err
	}

	return json.Marshal(cachedResponse{
		Method:     method,
		Path:       path,
		StatusCode: rec.statusCode,
		Headers:    capturedHeaders,
		Body:       rec.body.Bytes(),
	})
}

// responseRecorder buffers the status code, headers, and body written by the
// downstream handler.
type responseRecorder struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	headers    http.Header
	wroteHead  bool
}

func (r *responseRecorder) Header() http.Header {
	return r.headers
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.wroteHead = true
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHead {
		r.statusCode = http.StatusOK
		r.wroteHead = true
	}
	return r.body.Write(b)
}
