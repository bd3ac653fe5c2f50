// Path: internal/upstream/client.go
package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recipe-finder/internal/config"
	"recipe-finder/internal/domain"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultSearchPath is used when a search request names no explicit upstream path.
const DefaultSearchPath = "recipes/complexSearch"

// Response is a raw upstream reply. Body is shared between coalesced callers
// and must not be modified.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the upstream answered with a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is a credentialed, rate-limited client for the recipe data provider.
type Client struct {
	baseURL        string
	apiKey         string
	credentialName string
	client         *http.Client
	limiter        *rate.Limiter
	flight         singleflight.Group
	log            *slog.Logger
}

// NewClient creates and configures a new upstream Client.
func NewClient(cfg config.UpstreamConfig, log *slog.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.BurstLimit
	if burst <= 0 {
		burst = 1
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	name := cfg.CredentialName
	if name == "" {
		name = "SPOONACULAR_KEY"
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		credentialName: name,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

// CredentialName is the name under which the API key is configured.
func (c *Client) CredentialName() string {
	return c.credentialName
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool {
	return c.apiKey != ""
}

// Get fetches path (relative to the provider root) with the given query and the
// injected credential. Identical concurrent requests share one upstream call.
// Non-2xx replies are returned as a Response, not as an error.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	if !c.HasCredential() {
		return nil, domain.ErrMissingCredential
	}

	// The key stays out of the flight key and the logs.
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	// The shared call outlives any one caller; each caller still honours its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(target, func() (interface{}, error) {
		return c.do(flightCtx, target)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.log.Debug("upstream: coalesced request", "url", target)
		}
		return res.Val.(*Response), nil
	}
}

// RecipeInformation fetches the single-recipe information document for id.
func (c *Client) RecipeInformation(ctx context.Context, id string) (*Response, error) {
	q := url.Values{}
	q.Set("includeNutrition", "false")
	return c.Get(ctx, "recipes/"+url.PathEscape(id)+"/information", q)
}

func (c *Client) do(ctx context.Context, target string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+sep+"apiKey="+url.QueryEscape(c.apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error embeds the full URL, key included.
		return nil, fmt.Errorf("failed to execute request: %s", redact(err.Error(), c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.log.Debug("upstream: fetched", "url", target, "status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "REDACTED")
}
