// Package oracle is the client for the external identity-document
// verification service. The verification logic itself lives outside this
// system; this client only asks for a verdict with a bounded timeout and a
// small bounded retry count, so a slow or dead oracle can never stall a
// whole batch.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrUnavailable means the oracle could not be reached within the
	// timeout and retry budget. Callers surface this per action, never for
	// the whole batch.
	ErrUnavailable = errors.New("identity verification service unavailable")
	// ErrUnverified means the oracle answered and rejected the document.
	ErrUnverified = errors.New("identity document could not be verified")
)

// DemographicData is what the oracle returns for a verified document.
type DemographicData struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
}

// Verifier is implemented by identity-document verification clients.
type Verifier interface {
	Verify(ctx context.Context, documentType, documentNumber string) (*DemographicData, error)
}

// Client calls the verification oracle over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient creates an oracle client. timeout bounds each attempt and
// retries bounds how many times a failed attempt is repeated.
func NewClient(baseURL string, timeout time.Duration, retries int) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{http: c}
}

type verifyRequest struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
}

type verifyResponse struct {
	Verified     bool             `json:"verified"`
	Demographics *DemographicData `json:"demographics"`
}

// Verify asks the oracle for the demographic data behind a document.
func (c *Client) Verify(ctx context.Context, documentType, documentNumber string) (*DemographicData, error) {
	var out verifyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(verifyRequest{DocumentType: documentType, DocumentNumber: documentNumber}).
		SetResult(&out).
		Post("/v1/verify")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode() >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	case resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusUnprocessableEntity:
		return nil, ErrUnverified
	case resp.StatusCode() != http.StatusOK:
		return nil, fmt.Errorf("identity verification: unexpected status %d", resp.StatusCode())
	}
	if !out.Verified || out.Demographics == nil {
		return nil, ErrUnverified
	}
	return out.Demographics, nil
}
