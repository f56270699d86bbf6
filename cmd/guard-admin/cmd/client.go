package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/makerstokyo/api/pkg/apierror"
	"github.com/makerstokyo/api/pkg/signature"
)

// Signature headers checked by the internal API.
const (
	headerSignature          = "X-Signature"
	headerSignatureTimestamp = "X-Signature-Timestamp"
)

// Client calls signed internal endpoints.
type Client struct {
	baseURL    string
	signer     *signature.Signer
	httpClient *http.Client
	verbose    io.Writer // nil disables request tracing
}

// NewClient creates a new internal API client.
func NewClient(baseURL string, signer *signature.Signer, verbose io.Writer) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		signer:     signer,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		verbose:    verbose,
	}
}

// PostSigned sends body with a timed signature over its exact bytes and
// returns the response body.
func (c *Client) PostSigned(ctx context.Context, path string, body []byte) ([]byte, int, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	ts := c.signer.SignTimed(string(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerSignature, ts.Signature)
	req.Header.Set(headerSignatureTimestamp, strconv.FormatInt(ts.Timestamp, 10))

	if c.verbose != nil {
		fmt.Fprintf(c.verbose, ">>> POST %s\n", url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if c.verbose != nil {
		fmt.Fprintf(c.verbose, "<<< %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, parseAPIError(resp.StatusCode, respBody)
	}
	return respBody, resp.StatusCode, nil
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

func parseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}

	var parsed apierror.Response
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		apiErr.Code = string(parsed.Code)
		apiErr.Message = parsed.Error
		return apiErr
	}

	switch statusCode {
	case http.StatusUnauthorized:
		apiErr.Message = "unauthorized: signature rejected, check the secret and clock"
	case http.StatusTooManyRequests:
		apiErr.Message = "rate limited"
	default:
		apiErr.Message = fmt.Sprintf("API error: %d %s", statusCode, http.StatusText(statusCode))
	}
	return apiErr
}
