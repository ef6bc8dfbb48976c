// Package aur queries the AUR RPC for package version metadata. The RPC
// carries no size telemetry, so results populate only the version field.
package aur

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/manifest"
)

// DefaultBaseURL is the public AUR RPC endpoint
const DefaultBaseURL = "https://aur.archlinux.org/rpc/"

// rpcMaxBatch is the upstream hard cap on names per info call
const rpcMaxBatch = 100

const (
	defaultTimeout = 10 * time.Second
	defaultRetries = 3
)

// Client queries the RPC v5 info endpoint with bounded retries
type Client struct {
	baseURL  string
	maxBatch int
	timeout  time.Duration
	retries  int
	http     *retryablehttp.Client
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client) error

// WithBaseURL points the client at a different RPC endpoint
func WithBaseURL(u string) ClientOption {
	return func(c *Client) error {
		if u == "" {
			return fmt.Errorf("base url must not be empty")
		}
		c.baseURL = u
		return nil
	}
}

// WithMaxBatch bounds names per info call. Values beyond the upstream cap
// are clamped down to it.
func WithMaxBatch(n int) ClientOption {
	return func(c *Client) error {
		if n < 1 {
			return fmt.Errorf("max batch must be positive, got %d", n)
		}
		if n > rpcMaxBatch {
			n = rpcMaxBatch
		}
		c.maxBatch = n
		return nil
	}
}

// WithTimeout bounds each HTTP request
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithRetries sets the retry budget for transient upstream failures
func WithRetries(n int) ClientOption {
	return func(c *Client) error {
		if n < 0 {
			return fmt.Errorf("retries must not be negative, got %d", n)
		}
		c.retries = n
		return nil
	}
}

// NewClient creates a Client with the given options applied over defaults
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:  DefaultBaseURL,
		maxBatch: rpcMaxBatch,
		timeout:  defaultTimeout,
		retries:  defaultRetries,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = c.retries
	rc.HTTPClient.Timeout = c.timeout
	c.http = rc
	return c, nil
}

// rpcResponse mirrors the v5 envelope. The AUR serializes result fields in
// PascalCase.
type rpcResponse struct {
	Type        string      `json:"type"`
	Error       string      `json:"error"`
	ResultCount int         `json:"resultcount"`
	Results     []rpcResult `json:"results"`
}

type rpcResult struct {
	Name    string `json:"Name"`
	Version string `json:"Version"`
}

// Info fetches version info for names, chunked to the client's batch bound.
// Names the archive does not know are simply absent from the result.
func (c *Client) Info(names []string) (map[string]manifest.VersionInfo, error) {
	infos := make(map[string]manifest.VersionInfo, len(names))
	for start := 0; start < len(names); start += c.maxBatch {
		end := start + c.maxBatch
		if end > len(names) {
			end = len(names)
		}
		if err := c.infoBatch(names[start:end], infos); err != nil {
			return nil, err
		}
	}
	return infos, nil
}

func (c *Client) infoBatch(names []string, into map[string]manifest.VersionInfo) error {
	params := url.Values{}
	params.Set("v", "5")
	params.Set("type", "info")
	for _, name := range names {
		params.Add("arg[]", name)
	}

	resp, err := c.http.Get(c.baseURL + "?" + params.Encode())
	if err != nil {
		return errdefs.Network("querying aur rpc: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errdefs.Network("aur rpc returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errdefs.Network("reading aur rpc response: %v", err)
	}

	var payload rpcResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return errdefs.Serialization("decoding aur rpc response: %v", err)
	}
	if payload.Type == "error" {
		return errdefs.Network("aur rpc error: %s", payload.Error)
	}

	for _, r := range payload.Results {
		if r.Name == "" {
			continue
		}
		into[r.Name] = manifest.VersionInfo{Version: r.Version}
	}
	return nil
}
