// Package mobo drives rack-unit power sequencing over the onboard
// management service's request/response protocol.
package mobo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-retryablehttp"

	"ttreset/pkg/defaults"
	"ttreset/pkg/errors"
)

const (
	basicAuthUser = "admin"
	basicAuthPass = "admin"
)

// Client issues requests against rack-unit management endpoints.
type Client struct {
	http *retryablehttp.Client
	port int
}

// NewClient returns a Client with request-level timeouts applied.
func NewClient() *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.HTTPClient.Timeout = defaults.MoboRequestTimeout
	httpClient.RetryMax = 2
	httpClient.Logger = nil

	return &Client{
		http: httpClient,
		port: defaults.MoboPort,
	}
}

func (c *Client) endpointURL(unit, endpoint string) string {
	return fmt.Sprintf("http://%s:%d/%s", unit, c.port, endpoint)
}

// Version queries the unit's reported protocol version. Units that are
// unreachable or predate the about endpoint report 0.0.0, which newer
// request fields are gated on.
func (c *Client) Version(ctx context.Context, unit string) *semver.Version {
	payload, err := c.do(ctx, http.MethodGet, unit, "about", nil, true)
	if err != nil {
		return semver.New(0, 0, 0, "", "")
	}

	raw, ok := payload["version"].(string)
	if !ok {
		return semver.New(0, 0, 0, "", "")
	}

	version, err := semver.NewVersion(raw)
	if err != nil {
		return semver.New(0, 0, 0, "", "")
	}

	return version
}

// Get issues a GET request and inspects the response for surfaced errors.
func (c *Client) Get(ctx context.Context, unit, endpoint string) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, unit, endpoint, nil, true)
}

// Post issues a POST request carrying body as JSON. When checkError is
// false, protocol-level failures surfaced in the response body are ignored
// (transport failures still return an error); this is used by the tolerant
// module-shutdown step, where a module that was already off must not block
// the flow.
func (c *Client) Post(ctx context.Context, unit, endpoint string, body any, checkError bool) (map[string]any, error) {
	return c.do(ctx, http.MethodPost, unit, endpoint, body, checkError)
}

func (c *Client) do(ctx context.Context, method, unit, endpoint string, body any, checkError bool) (map[string]any, error) {
	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request body: %w", endpoint, err)
		}

		reader = bytes.NewReader(raw)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.endpointURL(unit, endpoint), reader)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", endpoint, err)
	}

	req.SetBasicAuth(basicAuthUser, basicAuthPass)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request %s: %w", unit, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response from %s: %w", endpoint, unit, err)
	}

	// Commands that return nothing on success send an empty body.
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.RemoteProtocolError{
			Unit:     unit,
			Endpoint: endpoint,
			Detail:   fmt.Sprintf("malformed response: %s", string(raw)),
		}
	}

	if !checkError {
		return payload, nil
	}

	// An error key signals a request-level failure; a non-null exception
	// key surfaces an asynchronous failure from a prior step.
	if errVal, ok := payload["error"]; ok {
		return payload, errors.RemoteProtocolError{
			Unit:     unit,
			Endpoint: endpoint,
			Detail:   fmt.Sprintf("%v", errVal),
		}
	}

	if excVal, ok := payload["exception"]; ok && excVal != nil {
		return payload, errors.RemoteProtocolError{
			Unit:     unit,
			Endpoint: endpoint,
			Detail:   fmt.Sprintf("exception: %v", excVal),
		}
	}

	return payload, nil
}
