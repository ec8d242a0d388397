package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/five82/cardbridge/internal/capture"
	"github.com/five82/cardbridge/internal/outcome"
)

var (
	// ErrTransport reports that no HTTP response was received.
	ErrTransport = errors.New("submission transport failed")
	// ErrRejected reports a non-2xx status or an unreadable 2xx body.
	ErrRejected = errors.New("submission rejected")
)

// missingStatusMessage stands in for an empty msg so the operator still sees
// why the submission was refused.
const missingStatusMessage = "endpoint returned no status message"

// ApplicationError carries the endpoint's own failure message.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// Submitter posts captured records.
type Submitter interface {
	Submit(ctx context.Context, rec capture.Record) (Receipt, error)
}

// Ensure Client implements Submitter at compile time.
var _ Submitter = (*Client)(nil)

// Client posts captured records to the submission endpoint.
type Client struct {
	endpoint  *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultUserAgent = "cardbridge/0.1"
	requestTimeout   = 30 * time.Second
)

// NewClient builds a Client for the full submission URL.
func NewClient(submitURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(submitURL))
	if err != nil {
		return nil, fmt.Errorf("parse submit url %q: %w", submitURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("submit url %q must be absolute", submitURL)
	}
	return &Client{
		endpoint: u,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// Submit posts rec once. It never retries.
func (c *Client) Submit(ctx context.Context, rec capture.Record) (Receipt, error) {
	if c == nil {
		return Receipt{}, fmt.Errorf("client is nil")
	}
	body, err := json.Marshal(NewEnvelope(rec))
	if err != nil {
		return Receipt{}, fmt.Errorf("encode envelope: %w", err)
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Receipt{}, fmt.Errorf("%w: api %s returned status %d", ErrRejected, c.endpoint.Path, resp.StatusCode)
	}

	var payload Response
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return Receipt{}, fmt.Errorf("%w: decode response: %v", ErrRejected, err)
	}
	if payload.Msg != StatusOK {
		msg := payload.Msg
		if strings.TrimSpace(msg) == "" {
			msg = missingStatusMessage
		}
		return Receipt{}, &ApplicationError{Message: msg}
	}
	return Receipt{Code: payload.CustomerCode(), RequestID: requestID}, nil
}

// Outcome classifies the result of one Submit call for rec.
func Outcome(rec capture.Record, receipt Receipt, err error) outcome.Outcome {
	var appErr *ApplicationError
	switch {
	case err == nil:
		return outcome.New(outcome.SubmissionSucceeded,
			fmt.Sprintf("Customer: %s (%s)", rec.Name, receipt.Code), nil)
	case errors.As(err, &appErr):
		return outcome.New(outcome.SubmissionApplicationError, appErr.Message, err)
	case errors.Is(err, ErrRejected):
		return outcome.New(outcome.SubmissionRejected,
			fmt.Sprintf("Submission rejected: %v", err), err)
	default:
		return outcome.New(outcome.SubmissionFailed,
			fmt.Sprintf("Error making POST request: %v", err), err)
	}
}
