// Package aggregator is the client for the external route-finding service
// used by the off-chain liquidity strategies.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoRoutes is returned when the service has no route for the pair.
var ErrNoRoutes = errors.New("aggregator returned no routes")

// Client calls the route-finding REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	Logger     *zap.Logger
}

// NewClient builds a route API client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("aggregator base url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		logger:     opts.Logger,
	}, nil
}

// Routes requests executable routes for the pair. The response is ordered by
// the service; use BestRoute to pick the cheapest.
func (c *Client) Routes(ctx context.Context, req RouteRequest) ([]Route, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode route request: %w", err)
	}

	var routes []Route
	err = withRetry(ctx, c.maxRetries, c.backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/routes", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build route request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("route request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apiError(resp)
		}

		var decoded routesResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("decode route response: %w", err)
		}
		routes = decoded.Routes
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoRoutes, req.FromToken, req.ToToken)
	}

	c.logger.Debug("routes fetched",
		zap.Uint64("from_chain", req.FromChainID),
		zap.Uint64("to_chain", req.ToChainID),
		zap.Int("count", len(routes)),
	)

	return routes, nil
}

// BestRoute picks the cheapest route: the highest expected output net of the
// quoted gas cost, both in destination-token base units.
func BestRoute(routes []Route) (*Route, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	var best *Route
	var bestNet *big.Int
	for i := range routes {
		net, err := routeNetOutput(&routes[i])
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", routes[i].ID, err)
		}
		if best == nil || net.Cmp(bestNet) > 0 {
			best = &routes[i]
			bestNet = net
		}
	}
	return best, nil
}

func routeNetOutput(route *Route) (*big.Int, error) {
	out, ok := new(big.Int).SetString(route.ExpectedOutput, 10)
	if !ok {
		return nil, fmt.Errorf("invalid expected output %q", route.ExpectedOutput)
	}
	gas := big.NewInt(0)
	if route.GasCostInQuote != "" {
		gas, ok = new(big.Int).SetString(route.GasCostInQuote, 10)
		if !ok {
			return nil, fmt.Errorf("invalid gas cost %q", route.GasCostInQuote)
		}
	}
	return out.Sub(out, gas), nil
}

func apiError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(raw) > 0 {
		var decoded errorResponse
		if json.Unmarshal(raw, &decoded) == nil && decoded.Message != "" {
			return fmt.Errorf("aggregator api status %d: %s", resp.StatusCode, decoded.Message)
		}
		return fmt.Errorf("aggregator api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return fmt.Errorf("aggregator api status %d", resp.StatusCode)
}
