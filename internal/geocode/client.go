// Package geocode resolves free-text addresses to coordinates through the
// Google Geocoding API. Calls are never retried.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/regions/internal/geometry"
	"github.com/onnwee/regions/internal/tracing"
)

// DefaultBaseURL is the Google Geocoding JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 5 * time.Second

// Provider status values.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// ErrEmptyAddress is returned when the address is blank.
var ErrEmptyAddress = errors.New("address is required")

// Component is one structured part of a resolved address.
type Component struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Result is a resolved address.
type Result struct {
	Address     string         `json:"address"`
	Coordinates geometry.Point `json:"coordinates"`
	Components  []Component    `json:"components"`
	PlaceID     string         `json:"placeId"`
}

func (r Result) clone() Result {
	c := r
	c.Components = make([]Component, len(r.Components))
	for i, comp := range r.Components {
		comp.Types = append([]string(nil), comp.Types...)
		c.Components[i] = comp
	}
	return c
}

// Geocoder resolves addresses. Implemented by Client; handlers depend on
// this interface so tests can substitute a fake.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string       // Default: DefaultBaseURL
	HTTPClient *http.Client // Default: traced client with DefaultTimeout
	Cache      Cache        // Optional
	CacheTTL   time.Duration
	Metrics    *Metrics
	Logger     *slog.Logger
}

// Client calls the provider and optionally caches successful lookups.
type Client struct {
	apiKey   string
	baseURL  string
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	metrics  *Metrics
	logger   *slog.Logger
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		apiKey:   opts.APIKey,
		baseURL:  opts.BaseURL,
		http:     opts.HTTPClient,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if c.cacheTTL <= 0 {
		c.cacheTTL = DefaultCacheTTL
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

type apiResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string      `json:"formatted_address"`
		PlaceID          string      `json:"place_id"`
		Components       []Component `json:"address_components"`
		Geometry         struct {
			Location geometry.Point `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves address to its first provider match.
// It returns *NotFoundError when the provider has no match and
// *UpstreamError for every other failure.
func (c *Client) Geocode(ctx context.Context, address string) (res *Result, err error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}

	ctx, endSpan := tracing.StartSpan(ctx, "geocode.lookup")
	defer func() { endSpan(err) }()

	if c.cache != nil {
		cached, ok, cerr := c.cache.Get(ctx, address)
		if cerr != nil {
			c.logger.WarnContext(ctx, "geocode cache read failed", slog.String("error", cerr.Error()))
		}
		if c.metrics != nil {
			c.metrics.observeCache(ok)
		}
		if ok {
			tracing.SetAttributes(ctx, attribute.Bool("geocode.cache_hit", true))
			return cached, nil
		}
	}

	start := time.Now()
	res, err = c.lookup(ctx, address)
	if c.metrics != nil {
		c.metrics.observeRequest(outcomeOf(err), time.Since(start).Seconds())
	}
	if err != nil {
		c.logger.WarnContext(ctx, "geocode lookup failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return nil, err
	}

	if c.cache != nil {
		if cerr := c.cache.Set(ctx, address, res, c.cacheTTL); cerr != nil {
			c.logger.WarnContext(ctx, "geocode cache write failed", slog.String("error", cerr.Error()))
		}
	}
	return res, nil
}

func (c *Client) lookup(ctx context.Context, address string) (*Result, error) {
	if c.apiKey == "" {
		return nil, &UpstreamError{Message: "missing api key"}
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{HTTPStatus: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var r apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, &UpstreamError{HTTPStatus: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	switch {
	case r.Status == StatusOK && len(r.Results) > 0:
		first := r.Results[0]
		return &Result{
			Address:     first.FormattedAddress,
			Coordinates: first.Geometry.Location,
			Components:  first.Components,
			PlaceID:     first.PlaceID,
		}, nil
	case r.Status == StatusZeroResults, r.Status == StatusOK:
		status := r.Status
		if status == StatusOK {
			status = StatusZeroResults
		}
		return nil, &NotFoundError{Address: address, Status: status}
	default:
		return nil, &UpstreamError{Status: r.Status, Message: r.ErrorMessage}
	}
}

func outcomeOf(err error) string {
	var nf *NotFoundError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &nf):
		return OutcomeNotFound
	default:
		return OutcomeUpstream
	}
}
