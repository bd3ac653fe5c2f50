// Package client is the page's fetch adapter: it talks to the local proxy,
// never to the provider directly.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"recipe-finder/internal/domain"
)

// FetchError is returned by FetchDetail for network, status and decode failures.
type FetchError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Adapter fetches recipe lists and details through the proxy endpoints.
type Adapter struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewAdapter creates an adapter for the proxy at baseURL.
func NewAdapter(baseURL string, timeout time.Duration, log *slog.Logger) *Adapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// FetchList issues /api/search?<pathAndQuery> and returns its results. Any
// failure is logged and yields an empty list; it never reports an error.
func (a *Adapter) FetchList(ctx context.Context, pathAndQuery string) []domain.RecipeSummary {
	body, status, err := a.get(ctx, "/api/search?"+strings.TrimPrefix(pathAndQuery, "?"))
	if err != nil {
		a.log.Error("Error fetching from API", "query", pathAndQuery, "error", err)
		return []domain.RecipeSummary{}
	}
	if status < 200 || status > 299 {
		a.log.Error("Error fetching from API", "query", pathAndQuery, "status", status, "error", errorMessage(body))
		return []domain.RecipeSummary{}
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		a.log.Error("Error fetching from API", "query", pathAndQuery, "error", fmt.Errorf("decode results: %w", err))
		return []domain.RecipeSummary{}
	}
	if resp.Results == nil {
		return []domain.RecipeSummary{}
	}
	return resp.Results
}

// List runs a search for the descriptor. The error is always nil; it exists
// so callers can be given other list sources.
func (a *Adapter) List(ctx context.Context, d domain.Descriptor) ([]domain.RecipeSummary, error) {
	return a.FetchList(ctx, d.Encode()), nil
}

// FetchDetail loads one recipe through /api/recipe. Failures are returned as
// *FetchError; a 404 also matches domain.ErrNotFound.
func (a *Adapter) FetchDetail(ctx context.Context, id int) (*domain.RecipeDetail, error) {
	name := "fetch recipe " + strconv.Itoa(id)

	if id <= 0 {
		return nil, &FetchError{Op: name, Err: domain.ErrInvalidID}
	}

	body, status, err := a.get(ctx, "/api/recipe?id="+strconv.Itoa(id))
	if err != nil {
		return nil, &FetchError{Op: name, Err: err}
	}
	if status == http.StatusNotFound {
		return nil, &FetchError{Op: name, StatusCode: status, Err: fmt.Errorf("%w: %s", domain.ErrNotFound, errorMessage(body))}
	}
	if status < 200 || status > 299 {
		return nil, &FetchError{Op: name, StatusCode: status, Err: errors.New(errorMessage(body))}
	}

	var d domain.RecipeDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, &FetchError{Op: name, StatusCode: status, Err: fmt.Errorf("decode recipe: %w", err)}
	}
	if d.ID == 0 {
		d.ID = domain.FlexibleInt(id)
	}
	return &d, nil
}

func (a *Adapter) get(ctx context.Context, pathAndQuery string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// errorMessage extracts {"error": ...} from a proxy error body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "request failed"
}
