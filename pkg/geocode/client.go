// Package geocode resolves free-text place names to coordinates through the
// geosuggest city-suggestion API.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public geosuggest deployment.
const DefaultBaseURL = "https://geosuggest.herokuapp.com"

const suggestPath = "/api/city/suggest"

// Client looks up city suggestions for a place name.
type Client interface {
	// Suggest returns the first suggestion for pattern, or nil when the
	// service has none.
	Suggest(ctx context.Context, pattern string) (*Suggestion, error)
}

// Suggestion is the first city match returned for a place name.
type Suggestion struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`
}

type suggestResponse struct {
	Items []suggestItem `json:"items"`
}

type suggestItem struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   *struct {
		Name string `json:"name"`
	} `json:"country"`
	Timezone string `json:"timezone"`
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL points the client at another geosuggest deployment.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit. Non-positive values
// keep the default.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps <= 0 {
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		if ua != "" {
			g.userAgent = ua
		}
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	userAgent  string
	limiter    *rate.Limiter
	rc         *resty.Client
}

// NewClient creates a geosuggest Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		timeout:    30 * time.Second,
		userAgent:  "plonemap/1.0",
		limiter:    rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.rc = resty.NewWithClient(g.httpClient).
		SetBaseURL(g.baseURL).
		SetTimeout(g.timeout).
		SetHeader("User-Agent", g.userAgent).
		SetHeader("Accept", "application/json")
	return g
}

// Suggest queries the suggestion endpoint with the pattern wrapped in double
// quotes. Transport, status and decoding failures are returned as errors, as
// is a body without an items array.
func (g *geocoder) Suggest(ctx context.Context, pattern string) (*Suggestion, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit wait")
	}

	var out suggestResponse
	resp, err := g.rc.R().
		SetContext(ctx).
		SetQueryParam("pattern", `"`+pattern+`"`).
		SetResult(&out).
		ForceContentType("application/json").
		Get(suggestPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: suggest %q", pattern)
	}
	if resp.IsError() {
		return nil, eris.Errorf("geocode: suggest %q: http %d", pattern, resp.StatusCode())
	}

	if out.Items == nil {
		return nil, eris.Errorf("geocode: suggest %q: response has no items", pattern)
	}
	if len(out.Items) == 0 {
		zap.L().Debug("geocode: no suggestion", zap.String("pattern", pattern))
		return nil, nil
	}

	first := out.Items[0]
	s := &Suggestion{
		Name:      first.Name,
		Latitude:  first.Latitude,
		Longitude: first.Longitude,
		Timezone:  first.Timezone,
	}
	if first.Country != nil {
		s.Country = first.Country.Name
	}
	return s, nil
}
