package smarther

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/casaops/go-smarther/internal/util"
)

// APIError reports a device API response whose status did not match the
// expectation for the operation.
type APIError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("smarther api returned %s", e.Status)
}

// newRequest builds a device API request with the bearer token and portal
// subscription key attached. The path is appended to the configured base URL.
func (c *AuthorizedClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.core.apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create api request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", util.AcceptedEncodings)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes the request, decompresses the response body, checks the status
// against expectStatus, and unmarshals the body into out when out is non-nil.
func (c *AuthorizedClient) do(req *http.Request, expectStatus int, out any) error {
	resp, err := c.core.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read api response: %w", err)
	}

	// Accept-Encoding is set manually, so the transport does not transparently
	// decompress; decode here based on what the server actually sent.
	decoded, err := util.DecodeBody(resp.Header.Get("Content-Encoding"), body)
	if err != nil {
		return err
	}

	if resp.StatusCode != expectStatus {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: decoded}
	}

	if out != nil {
		if err := json.Unmarshal(decoded, out); err != nil {
			return fmt.Errorf("failed to decode api response: %w", err)
		}
	}
	return nil
}

func (c *AuthorizedClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, out)
}

func (c *AuthorizedClient) sendJSON(ctx context.Context, method, path string, payload any, expectStatus int, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.do(req, expectStatus, out)
}
