// Path: internal/delivery/rest/handlers.go
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"recipe-finder/internal/contact"
	"recipe-finder/internal/domain"
	"recipe-finder/internal/upstream"
)

const maxContactBody = 1 << 20

// upstreamClient defines what the proxy handlers need from the provider client.
type upstreamClient interface {
	CredentialName() string
	HasCredential() bool
	Get(ctx context.Context, path string, query url.Values) (*upstream.Response, error)
	RecipeInformation(ctx context.Context, id string) (*upstream.Response, error)
}

// ProxyHandlers holds dependencies for the provider proxy and demo endpoints.
type ProxyHandlers struct {
	upstream upstreamClient
	log      *slog.Logger
}

// NewProxyHandlers creates a new handler struct.
func NewProxyHandlers(u upstreamClient, log *slog.Logger) *ProxyHandlers {
	return &ProxyHandlers{upstream: u, log: log}
}

// Search forwards to the complex-search endpoint, or to any provider path given as ?path=.
// Path: /api/search
func (h *ProxyHandlers) Search(w http.ResponseWriter, r *http.Request) {
	if !h.upstream.HasCredential() {
		writeError(w, http.StatusInternalServerError, "Missing "+h.upstream.CredentialName())
		return
	}

	query := r.URL.Query()
	target := query.Get("path")
	query.Del("path")
	if target == "" {
		target = upstream.DefaultSearchPath
	}
	target, ok := cleanUpstreamPath(target)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid path")
		return
	}
	// complexSearch reads "query"; the page sends "q".
	if q := query.Get("q"); q != "" && query.Get("query") == "" {
		query.Set("query", q)
	}

	resp, err := h.upstream.Get(r.Context(), target, query)
	h.relay(w, resp, err)
}

// Recipe forwards to the single-recipe information endpoint.
// Path: /api/recipe?id=
func (h *ProxyHandlers) Recipe(w http.ResponseWriter, r *http.Request) {
	if !h.upstream.HasCredential() {
		writeError(w, http.StatusInternalServerError, "Missing "+h.upstream.CredentialName())
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing recipe id")
		return
	}

	resp, err := h.upstream.RecipeInformation(r.Context(), id)
	h.relay(w, resp, err)
}

// Contact accepts a demo contact submission. Nothing is persisted or sent.
// Path: /api/contact
func (h *ProxyHandlers) Contact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	msg, err := decodeContact(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !contact.Complete(msg) {
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	h.log.Info("contact form submission", "name", msg.Name, "email", msg.Email, "message", msg.Message)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Received (demo)"})
}

// Placeholder serves a neutral SVG used when a recipe has no image.
// Path: /api/placeholder/{w}/{h}
func (h *ProxyHandlers) Placeholder(w http.ResponseWriter, r *http.Request) {
	width, errW := strconv.Atoi(r.PathValue("w"))
	height, errH := strconv.Atoi(r.PathValue("h"))
	if errW != nil || errH != nil || width <= 0 || height <= 0 || width > 2000 || height > 2000 {
		writeError(w, http.StatusBadRequest, "Invalid placeholder size")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<rect width="100%%" height="100%%" fill="#e9e4dc"/>`+
		`<text x="50%%" y="50%%" dominant-baseline="middle" text-anchor="middle" font-family="sans-serif" font-size="%d" fill="#9a8f80">No image</text>`+
		`</svg>`, width, height, width, height, max(12, height/10))
}

// relay mirrors an upstream reply: 2xx JSON bodies pass through untouched,
// anything else becomes {"error": ...} with the upstream status.
func (h *ProxyHandlers) relay(w http.ResponseWriter, resp *upstream.Response, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrMissingCredential) {
			writeError(w, http.StatusInternalServerError, "Missing "+h.upstream.CredentialName())
			return
		}
		h.log.Error("upstream request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !resp.OK() {
		h.log.Warn("upstream returned error status", "status", resp.StatusCode)
		writeError(w, resp.StatusCode, string(resp.Body))
		return
	}
	if !json.Valid(resp.Body) {
		writeError(w, http.StatusInternalServerError, "Upstream returned invalid JSON")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(resp.Body)
}

// cleanUpstreamPath normalizes a provider path and refuses anything that climbs out of the root.
func cleanUpstreamPath(p string) (string, bool) {
	if strings.Contains(p, "..") || strings.Contains(p, "://") {
		return "", false
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// decodeContact reads a JSON body, or form fields when the browser posted a form.
// An empty JSON body decodes to an empty message.
func decodeContact(w http.ResponseWriter, r *http.Request) (domain.ContactMessage, error) {
	var msg domain.ContactMessage
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return msg, err
		}
		msg.Name = r.PostForm.Get("name")
		msg.Email = r.PostForm.Get("email")
		msg.Message = r.PostForm.Get("message")
		return msg, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return msg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return msg, nil
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
