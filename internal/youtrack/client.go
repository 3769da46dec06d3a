// Package youtrack downloads issues and their activity history from a
// YouTrack REST API.
package youtrack

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/issues-dataset/internal/records"
)

// DefaultUserAgent is the user agent string for API requests.
const DefaultUserAgent = "issues-dataset/1.0"

// Options configures the API client.
type Options struct {
	// Token is sent as a bearer credential when non-empty.
	Token string
	// InsecureSkipVerify disables TLS certificate validation so that
	// self-signed staging servers can be reached.
	InsecureSkipVerify bool
	// Timeout bounds a single request. Zero means no client-side timeout.
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the client built from the fields above.
	HTTPClient *http.Client
}

// DefaultOptions returns options matching the exporter's defaults.
func DefaultOptions() *Options {
	return &Options{
		InsecureSkipVerify: true,
		UserAgent:          DefaultUserAgent,
	}
}

// Client issues authenticated GET requests against the server's api/ prefix.
type Client struct {
	apiURL  string
	http    *http.Client
	headers map[string]string
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &TransportError{URL: baseURL, Message: "invalid server address", Cause: err}
	}
	apiURL := strings.TrimSuffix(parsed.String(), "/") + "/api/"

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify} //nolint:gosec // configurable for self-signed staging servers
		httpClient = &http.Client{Transport: transport, Timeout: opts.Timeout}
	}

	headers := map[string]string{"Accept": "application/json"}
	if opts.Token != "" {
		headers["Authorization"] = "Bearer " + opts.Token
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	return &Client{apiURL: apiURL, http: httpClient, headers: headers}, nil
}

// APIURL returns the resolved api/ base, always ending in a slash.
func (c *Client) APIURL() string {
	return c.apiURL
}

// Get fetches rawURL and decodes a JSON array of objects. A JSON object with
// an `error` field yields *ServerError; anything else that fails yields
// *TransportError.
func (c *Client) Get(ctx context.Context, rawURL string) ([]records.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Status: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	return decodeResponse(rawURL, resp.StatusCode, body)
}

func decodeResponse(rawURL string, status int, body []byte) ([]records.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, &TransportError{URL: rawURL, Status: status, Message: "failed to parse response", Cause: err}
		}
		if msg, ok := obj["error"]; ok {
			desc, _ := obj["error_description"].(string)
			return nil, &ServerError{URL: rawURL, Status: status, Message: fmt.Sprint(msg), Description: desc}
		}
		return nil, &TransportError{URL: rawURL, Status: status, Message: "unexpected JSON object in response"}
	}

	if status < 200 || status > 299 {
		return nil, &TransportError{URL: rawURL, Status: status, Message: fmt.Sprintf("HTTP status %d", status)}
	}

	recs, err := records.Decode(trimmed)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Status: status, Message: "failed to parse response", Cause: err}
	}
	return recs, nil
}
