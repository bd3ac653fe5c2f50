// path: internal/delivery/ui/handlers.go
package ui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"recipe-finder/internal/contact"
	"recipe-finder/internal/domain"
	"recipe-finder/internal/events"
	"recipe-finder/internal/loop"
	"recipe-finder/internal/modal"
	"recipe-finder/internal/page"
	"recipe-finder/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageService defines the interface required by the UI handlers.
type pageService interface {
	Document() *page.Document
	Broker() *events.Broker
	Input(ctx context.Context, text string) error
	Search(ctx context.Context, values map[string]string) error
	Retry(ctx context.Context, target string) error
	ClearSearch(ctx context.Context) error
	ClearFilters(ctx context.Context) error
	ToggleFavoritesView(ctx context.Context) error
	ToggleFavorite(ctx context.Context, id int) (bool, error)
	View(ctx context.Context, id int, trigger string) error
	Close(ctx context.Context) error
	Key(ctx context.Context, k modal.Key) (modal.KeyResult, error)
	ToggleDarkMode(ctx context.Context) (bool, error)
	SubmitContact(ctx context.Context, m domain.ContactMessage) error
	ExportFavorites(ctx context.Context, w io.Writer) error
	Done() <-chan struct{}
}

var _ pageService = (*service.Service)(nil)

// pageSessions hands out one page per load and finds it again by token.
type pageSessions interface {
	Open(ctx context.Context) (string, pageService, error)
	Lookup(token string) (pageService, bool)
}

// serviceSessions adapts the service registry to pageSessions.
type serviceSessions struct {
	sessions *service.Sessions
}

func (a serviceSessions) Open(ctx context.Context) (string, pageService, error) {
	token, svc, err := a.sessions.Open(ctx)
	if err != nil {
		return "", nil, err
	}
	return token, svc, nil
}

func (a serviceSessions) Lookup(token string) (pageService, bool) {
	svc, ok := a.sessions.Lookup(token)
	if !ok {
		return nil, false
	}
	return svc, true
}

// SessionHeader carries the page token on page events. The event stream and
// downloads take it as the "session" query parameter instead.
const SessionHeader = "X-Page-Session"

// Handlers holds dependencies for UI handlers.
type Handlers struct {
	sessions  pageSessions
	templates *template.Template
	log       *slog.Logger
	keepAlive time.Duration
}

// NewHandlers creates a new UI handler struct.
func NewHandlers(sessions *service.Sessions, log *slog.Logger) *Handlers {
	return newHandlers(serviceSessions{sessions: sessions}, log)
}

func newHandlers(sessions pageSessions, log *slog.Logger) *Handlers {
	return &Handlers{
		sessions:  sessions,
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
		log:       log,
		keepAlive: 25 * time.Second,
	}
}

// pageHandler serves a request on behalf of one page.
type pageHandler func(p pageService, w http.ResponseWriter, r *http.Request)

// withPage resolves the request's page. A missing or expired token gets 410 so
// the browser reloads.
func (h *Handlers) withPage(fn pageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.sessions.Lookup(sessionToken(r))
		if !ok {
			writeError(w, http.StatusGone, "Page expired; reload to continue")
			return
		}
		fn(p, w, r)
	}
}

func sessionToken(r *http.Request) string {
	if token := r.Header.Get(SessionHeader); token != "" {
		return token
	}
	return r.URL.Query().Get("session")
}

// RegisterRoutes registers all UI routes on the given ServeMux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	// 1. Patch stream
	mux.HandleFunc("GET /ui/events", h.withPage(h.handleEvents))

	// 2. Page events
	mux.HandleFunc("POST /ui/input", h.withPage(h.handleInput))
	mux.HandleFunc("POST /ui/search", h.withPage(h.handleSearch))
	mux.HandleFunc("POST /ui/clear-search", h.withPage(h.simple(pageService.ClearSearch)))
	mux.HandleFunc("POST /ui/clear-filters", h.withPage(h.simple(pageService.ClearFilters)))
	mux.HandleFunc("POST /ui/retry", h.withPage(h.handleRetry))
	mux.HandleFunc("POST /ui/favorites-view", h.withPage(h.simple(pageService.ToggleFavoritesView)))
	mux.HandleFunc("POST /ui/favorite", h.withPage(h.handleFavorite))
	mux.HandleFunc("POST /ui/view", h.withPage(h.handleView))
	mux.HandleFunc("POST /ui/close", h.withPage(h.simple(pageService.Close)))
	mux.HandleFunc("POST /ui/key", h.withPage(h.handleKey))
	mux.HandleFunc("POST /ui/dark-mode", h.withPage(h.handleDarkMode))
	mux.HandleFunc("POST /ui/contact", h.withPage(h.handleContact))

	// 3. Downloads
	mux.HandleFunc("GET /ui/favorites/export.xlsx", h.withPage(h.handleExport))

	// 4. Root/Index page: This is the catch-all and MUST be last.
	mux.HandleFunc("/", h.handleShowIndex)
}

// handleShowIndex opens a fresh page for every load and serves its first render.
func (h *Handlers) handleShowIndex(w http.ResponseWriter, r *http.Request) {
	// This ensures that only the exact path "/" is handled here.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	token, p, err := h.sessions.Open(r.Context())
	if err != nil {
		h.log.Error("ui: could not open page", "error", err)
		http.Error(w, "Failed to open page", http.StatusInternalServerError)
		return
	}

	data := indexView{snap: p.Document().Snapshot(), session: token}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.log.Error("ui: template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleEvents streams document patches as server-sent events. The stream
// opens with a snapshot, and sends another whenever patches were dropped.
func (h *Handlers) handleEvents(p pageService, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	broker := p.Broker()
	sub := broker.Subscribe(events.TopicPatch)
	defer broker.Unsubscribe(events.TopicPatch, sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	h.writeSnapshot(w, p)
	flusher.Flush()

	token := sessionToken(r)
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-p.Done():
			fmt.Fprint(w, "event: expired\ndata: {}\n\n")
			flusher.Flush()
			return
		case <-ticker.C:
			// An open stream keeps its page from being reaped.
			h.sessions.Lookup(token)
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-sub:
			if !ok {
				return
			}
			h.forward(w, p, broker, sub, ev)
			flusher.Flush()
		}
	}
}

// forward writes one patch. If the subscription dropped events, whatever is
// still queued is discarded and a snapshot replaces it.
func (h *Handlers) forward(w io.Writer, p pageService, broker *events.Broker, sub <-chan events.Event, ev events.Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		h.log.Warn("ui: could not encode patch", "error", err)
	} else {
		fmt.Fprintf(w, "event: patch\ndata: %s\n\n", payload)
	}

	if !broker.Lagged(sub) {
		return
	}
	for drained := false; !drained; {
		select {
		case _, ok := <-sub:
			drained = !ok
		default:
			drained = true
		}
	}
	h.log.Warn("ui: patch stream fell behind, resyncing")
	h.writeSnapshot(w, p)
}

func (h *Handlers) writeSnapshot(w io.Writer, p pageService) {
	payload, err := json.Marshal(p.Document().Snapshot())
	if err != nil {
		h.log.Error("ui: could not encode snapshot", "error", err)
		return
	}
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
}

func (h *Handlers) handleInput(p pageService, w http.ResponseWriter, r *http.Request) {
	h.respond(w, p.Input(r.Context(), r.FormValue("text")))
}

func (h *Handlers) handleSearch(p pageService, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	values := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		values[k] = r.PostForm.Get(k)
	}
	h.respond(w, p.Search(r.Context(), values))
}

func (h *Handlers) handleRetry(p pageService, w http.ResponseWriter, r *http.Request) {
	target := r.FormValue("target")
	if target != service.RetryModal {
		target = service.RetrySearch
	}
	h.respond(w, p.Retry(r.Context(), target))
}

func (h *Handlers) handleFavorite(p pageService, w http.ResponseWriter, r *http.Request) {
	id, ok := formID(w, r)
	if !ok {
		return
	}
	favorite, err := p.ToggleFavorite(r.Context(), id)
	if err != nil {
		h.respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": favorite})
}

func (h *Handlers) handleView(p pageService, w http.ResponseWriter, r *http.Request) {
	id, ok := formID(w, r)
	if !ok {
		return
	}
	h.respond(w, p.View(r.Context(), id, r.FormValue("trigger")))
}

func (h *Handlers) handleKey(p pageService, w http.ResponseWriter, r *http.Request) {
	var k modal.Key
	if err := json.NewDecoder(r.Body).Decode(&k); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	res, err := p.Key(r.Context(), k)
	if err != nil {
		h.respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) handleDarkMode(p pageService, w http.ResponseWriter, r *http.Request) {
	dark, err := p.ToggleDarkMode(r.Context())
	if err != nil {
		h.respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"dark": dark})
}

func (h *Handlers) handleContact(p pageService, w http.ResponseWriter, r *http.Request) {
	m := domain.ContactMessage{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Message: r.FormValue("message"),
	}
	err := p.SubmitContact(r.Context(), m)
	switch {
	case errors.Is(err, contact.ErrIncomplete), errors.Is(err, contact.ErrInvalidEmail):
		writeError(w, http.StatusUnprocessableEntity, contact.Message(err))
	case err != nil:
		h.respond(w, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": contact.SuccessMessage})
	}
}

func (h *Handlers) handleExport(p pageService, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="favorites.xlsx"`)
	if err := p.ExportFavorites(r.Context(), w); err != nil {
		h.log.Error("ui: export failed", "error", err)
		http.Error(w, "Failed to export favorites", http.StatusInternalServerError)
	}
}

// simple adapts an argument-free page event.
func (h *Handlers) simple(fn func(pageService, context.Context) error) pageHandler {
	return func(p pageService, w http.ResponseWriter, r *http.Request) {
		h.respond(w, fn(p, r.Context()))
	}
}

func (h *Handlers) respond(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, loop.ErrStopped):
		writeError(w, http.StatusGone, "Page expired; reload to continue")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Page is busy")
	default:
		h.log.Error("ui: event failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func formID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.FormValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Missing recipe id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("ui: encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
