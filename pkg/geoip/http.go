package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// DefaultEndpoint is a freegeoip compatible JSON service.
const DefaultEndpoint = "https://freegeoip.app/json"

// DefaultTimeout bounds a single HTTP lookup.
const DefaultTimeout = 5 * time.Second

// HTTPLocator queries a freegeoip style service: GET <endpoint>/<ip> returning JSON.
type HTTPLocator struct {
	endpoint string
	timeout  time.Duration
	client   *fasthttp.Client
}

// HTTPOption configures an HTTPLocator.
type HTTPOption func(*HTTPLocator)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(l *HTTPLocator) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent to the service.
func WithUserAgent(ua string) HTTPOption {
	return func(l *HTTPLocator) {
		l.client.Name = ua
	}
}

// NewHTTPLocator creates a locator for endpoint. An empty endpoint uses DefaultEndpoint.
func NewHTTPLocator(endpoint string, opts ...HTTPOption) *HTTPLocator {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	l := &HTTPLocator{
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  DefaultTimeout,
		client: &fasthttp.Client{
			MaxConnsPerHost: 16,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// lookupResponse mirrors the service payload. Pointers detect missing fields.
type lookupResponse struct {
	CountryName *string `json:"country_name"`
	CountryCode string  `json:"country_code"`
	City        *string `json:"city"`
	RegionName  *string `json:"region_name"`
	ZipCode     *string `json:"zip_code"`
}

// Lookup fetches the location of ip. Network errors, non-200 responses,
// malformed bodies and missing fields all wrap ErrUnavailable.
func (l *HTTPLocator) Lookup(ctx context.Context, ip string) (*Location, error) {
	if net.ParseIP(ip) == nil {
		return nil, fmt.Errorf("%w: invalid address %q", ErrUnavailable, ip)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	timeout := l.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: deadline exceeded", ErrUnavailable)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(l.endpoint + "/" + ip)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := l.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("%w: request %s: %v", ErrUnavailable, ip, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode())
	}

	return decodeLocation(resp.Body())
}

func decodeLocation(body []byte) (*Location, error) {
	var payload lookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if payload.CountryName == nil || payload.City == nil || payload.RegionName == nil || payload.ZipCode == nil {
		return nil, fmt.Errorf("%w: response is missing location fields", ErrUnavailable)
	}
	return &Location{
		Country:     *payload.CountryName,
		CountryCode: payload.CountryCode,
		City:        *payload.City,
		Region:      *payload.RegionName,
		ZipCode:     *payload.ZipCode,
	}, nil
}
