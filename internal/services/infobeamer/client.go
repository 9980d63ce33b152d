package infobeamer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"infobeamer-cms/internal/config"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/services"
)

const (
	// DefaultBaseURL is the hosted info-beamer API root.
	DefaultBaseURL = "https://info-beamer.com/api/v1"
	component      = "infobeamer"
	maxErrorBody   = 512
)

// API is the set of hosted API operations consumed by sync, moderation and metrics.
type API interface {
	ListAssets(ctx context.Context, allowCached bool) ([]RawAsset, error)
	GetAsset(ctx context.Context, id int64) (*RawAsset, error)
	UpdateAssetUserdata(ctx context.Context, asset *RawAsset, updates map[string]any) error
	GetSetup(ctx context.Context, id int64) (*Setup, error)
	UpdateSetup(ctx context.Context, id int64, cfg json.RawMessage) error
	ListDevices(ctx context.Context, allowCached bool) ([]Device, error)
	CreateScopedKey(ctx context.Context, statements []PolicyStatement, expire time.Duration, uses int) (string, error)
}

// StatusError reports a non-2xx response from the hosted API.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned %d", e.Method, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to the hosted info-beamer API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *Cached
	logger     *slog.Logger
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithCache routes GET requests through the supplied read cache.
func WithCache(cache *Cached) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a hosted API client authenticating with apiKey.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "init", "api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from configuration, wiring the read cache when supplied.
func NewFromConfig(cfg *config.Config, cache *Cached, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "init", "config required", nil)
	}
	return New(cfg.Infobeamer.APIKey, cfg.Infobeamer.BaseURL,
		WithTimeout(time.Duration(cfg.Infobeamer.TimeoutSeconds)*time.Second),
		WithCache(cache),
		WithLogger(logging.NewComponentLogger(logger, component)),
	)
}

// ListAssets returns every asset of the account. When allowCached is true a
// recently cached listing may be returned instead of querying the API.
func (c *Client) ListAssets(ctx context.Context, allowCached bool) ([]RawAsset, error) {
	body, err := c.read(ctx, "asset/list", allowCached)
	if err != nil {
		return nil, err
	}
	var payload assetList
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "list assets", "decode response", err)
	}
	return payload.Assets, nil
}

// GetAsset fetches a single asset. A missing asset yields services.ErrNotFound.
func (c *Client) GetAsset(ctx context.Context, id int64) (*RawAsset, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, component, "get asset", "asset id must be positive", nil)
	}
	body, err := c.read(ctx, "asset/"+strconv.FormatInt(id, 10), false)
	if err != nil {
		return nil, err
	}
	var asset RawAsset
	if err := json.Unmarshal(body, &asset); err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "get asset", "decode response", err)
	}
	if asset.Userdata == nil {
		asset.Userdata = Userdata{}
	}
	return &asset, nil
}

// UpdateAssetUserdata merges updates into the asset's metadata and writes the
// whole blob back. There is no concurrency control; the last writer wins. A nil
// update value is stored as JSON null. On success asset.Userdata reflects the
// written state.
func (c *Client) UpdateAssetUserdata(ctx context.Context, asset *RawAsset, updates map[string]any) error {
	if asset == nil || asset.ID <= 0 {
		return services.Wrap(services.ErrValidation, component, "update userdata", "asset required", nil)
	}
	merged := make(Userdata, len(asset.Userdata)+len(updates))
	for key, value := range asset.Userdata {
		merged[key] = value
	}
	for key, value := range updates {
		encoded, err := json.Marshal(value)
		if err != nil {
			return services.Wrap(services.ErrValidation, component, "update userdata", "encode "+key, err)
		}
		merged[key] = encoded
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "update userdata", "encode userdata", err)
	}

	form := url.Values{}
	form.Set("userdata", string(encoded))
	if _, err := c.post(ctx, "asset/"+strconv.FormatInt(asset.ID, 10), form); err != nil {
		return err
	}
	asset.Userdata = merged
	return nil
}

// GetSetup fetches a setup including its configuration. Setups are never
// served from cache since the reconciler compares against their current state.
func (c *Client) GetSetup(ctx context.Context, id int64) (*Setup, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, component, "get setup", "setup id must be positive", nil)
	}
	body, err := c.read(ctx, "setup/"+strconv.FormatInt(id, 10), false)
	if err != nil {
		return nil, err
	}
	var setup Setup
	if err := json.Unmarshal(body, &setup); err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "get setup", "decode response", err)
	}
	return &setup, nil
}

// UpdateSetup replaces the default variant configuration of a setup.
func (c *Client) UpdateSetup(ctx context.Context, id int64, cfg json.RawMessage) error {
	if id <= 0 {
		return services.Wrap(services.ErrValidation, component, "update setup", "setup id must be positive", nil)
	}
	if !json.Valid(cfg) {
		return services.Wrap(services.ErrValidation, component, "update setup", "config is not valid json", nil)
	}
	encoded, err := json.Marshal(map[string]json.RawMessage{"": cfg})
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "update setup", "encode config", err)
	}
	form := url.Values{}
	form.Set("config", string(encoded))
	form.Set("mode", "update")
	_, err = c.post(ctx, "setup/"+strconv.FormatInt(id, 10), form)
	return err
}

// ListDevices returns every device of the account.
func (c *Client) ListDevices(ctx context.Context, allowCached bool) ([]Device, error) {
	body, err := c.read(ctx, "device/list", allowCached)
	if err != nil {
		return nil, err
	}
	var payload deviceList
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "list devices", "decode response", err)
	}
	return payload.Devices, nil
}

// CreateScopedKey creates an ad-hoc API key restricted to the given policy.
func (c *Client) CreateScopedKey(ctx context.Context, statements []PolicyStatement, expire time.Duration, uses int) (string, error) {
	if len(statements) == 0 {
		return "", services.Wrap(services.ErrValidation, component, "create scoped key", "policy requires at least one statement", nil)
	}
	if expire <= 0 {
		expire = time.Minute
	}
	if uses <= 0 {
		uses = 16
	}
	encoded, err := json.Marshal(policy{Version: 1, Statements: statements})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, component, "create scoped key", "encode policy", err)
	}
	form := url.Values{}
	form.Set("expire", strconv.Itoa(int(expire/time.Second)))
	form.Set("uses", strconv.Itoa(uses))
	form.Set("policy", string(encoded))
	body, err := c.post(ctx, "adhoc/create", form)
	if err != nil {
		return "", err
	}
	var payload struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", services.Wrap(services.ErrTransient, component, "create scoped key", "decode response", err)
	}
	if payload.APIKey == "" {
		return "", services.Wrap(services.ErrTransient, component, "create scoped key", "response carried no api key", nil)
	}
	return payload.APIKey, nil
}

func (c *Client) read(ctx context.Context, endpoint string, allowCached bool) ([]byte, error) {
	fetch := func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, endpoint, nil)
	}
	if c.cache == nil {
		return fetch(ctx)
	}
	return c.cache.Get(ctx, endpoint, allowCached, fetch)
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, endpoint, form)
}

func (c *Client) do(ctx context.Context, method, endpoint string, form url.Values) ([]byte, error) {
	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, component, method+" "+endpoint, "build request", err)
	}
	req.SetBasicAuth("", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.logger.Debug("hosted api request", logging.String("method", method), logging.String("endpoint", endpoint))

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := services.ErrTransient
		if services.FailureKind(err) == "timeout" {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, component, method+" "+endpoint, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, method+" "+endpoint, "read response", err)
	}

	c.logger.Debug("hosted api response",
		logging.String("method", method),
		logging.String("endpoint", endpoint),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       trimBody(payload),
		}
		return nil, services.Wrap(markerForStatus(resp.StatusCode), component, method+" "+endpoint, "unexpected status", statusErr)
	}
	return payload, nil
}

func markerForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return services.ErrConfiguration
	default:
		return services.ErrTransient
	}
}

func trimBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}

// AsStatusError extracts the HTTP status failure from err, if any.
func AsStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
