package ui

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"recipe-finder/internal/contact"
	"recipe-finder/internal/domain"
	"recipe-finder/internal/events"
	"recipe-finder/internal/loop"
	"recipe-finder/internal/modal"
	"recipe-finder/internal/page"
)

type fakeService struct {
	doc      *page.Document
	broker   *events.Broker
	done     chan struct{}
	calls    []string
	values   map[string]string
	keys     []modal.Key
	closeErr error
}

func newFakeService() *fakeService {
	b := events.NewBroker()
	return &fakeService{doc: page.New(b), broker: b, done: make(chan struct{})}
}

func (f *fakeService) Document() *page.Document { return f.doc }
func (f *fakeService) Broker() *events.Broker   { return f.broker }
func (f *fakeService) Done() <-chan struct{}    { return f.done }

func (f *fakeService) Input(_ context.Context, text string) error {
	f.calls = append(f.calls, "input:"+text)
	return nil
}

func (f *fakeService) Search(_ context.Context, values map[string]string) error {
	f.calls = append(f.calls, "search")
	f.values = values
	return nil
}

func (f *fakeService) Retry(_ context.Context, target string) error {
	f.calls = append(f.calls, "retry:"+target)
	return nil
}

func (f *fakeService) ClearSearch(context.Context) error {
	f.calls = append(f.calls, "clear-search")
	return nil
}

func (f *fakeService) ClearFilters(context.Context) error {
	f.calls = append(f.calls, "clear-filters")
	return nil
}

func (f *fakeService) ToggleFavoritesView(context.Context) error {
	f.calls = append(f.calls, "favorites-view")
	return nil
}

func (f *fakeService) ToggleFavorite(_ context.Context, id int) (bool, error) {
	f.calls = append(f.calls, "favorite")
	return id%2 == 1, nil
}

func (f *fakeService) View(_ context.Context, id int, trigger string) error {
	f.calls = append(f.calls, "view:"+trigger)
	return nil
}

func (f *fakeService) Close(context.Context) error {
	f.calls = append(f.calls, "close")
	return f.closeErr
}

func (f *fakeService) Key(_ context.Context, k modal.Key) (modal.KeyResult, error) {
	f.keys = append(f.keys, k)
	return modal.KeyResult{Focus: "modal-close", Prevent: true}, nil
}

func (f *fakeService) ToggleDarkMode(context.Context) (bool, error) { return true, nil }

func (f *fakeService) SubmitContact(_ context.Context, m domain.ContactMessage) error {
	return contact.Validate(contact.Normalize(m))
}

func (f *fakeService) ExportFavorites(_ context.Context, w io.Writer) error {
	_, err := w.Write([]byte("xlsx"))
	return err
}

// fakeSessions hands out queued pages first, then fresh ones.
type fakeSessions struct {
	pages  map[string]*fakeService
	queue  []*fakeService
	opened int
}

func (s *fakeSessions) Open(context.Context) (string, pageService, error) {
	s.opened++
	token := "page" + strconv.Itoa(s.opened)
	f := newFakeService()
	if len(s.queue) > 0 {
		f, s.queue = s.queue[0], s.queue[1:]
	}
	s.pages[token] = f
	return token, f, nil
}

func (s *fakeSessions) Lookup(token string) (pageService, bool) {
	f, ok := s.pages[token]
	if !ok {
		return nil, false
	}
	return f, true
}

const testToken = "page1"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestMux serves f as the first page load, already registered under testToken.
func newTestMux(f *fakeService) *http.ServeMux {
	sessions := &fakeSessions{pages: map[string]*fakeService{testToken: f}, queue: []*fakeService{f}}
	mux := http.NewServeMux()
	newHandlers(sessions, quietLogger()).RegisterRoutes(mux)
	return mux
}

func postForm(t *testing.T, mux http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SessionHeader, testToken)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersDocument(t *testing.T) {
	f := newFakeService()
	f.doc.SetHTML(page.Recipes, `<article class="recipe-card">Soup</article>`)
	f.doc.SetValue(page.Diet, "vegan")
	f.doc.SetDark(true)
	mux := newTestMux(f)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<article class="recipe-card">Soup</article>`,
		`<body class="dark-mode"`,
		`<option value="vegan" selected>`,
		`id="loading" hidden`,
		`id="modal-close"`,
		`const SESSION = "page1"`,
		`export.xlsx?session=page1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rec.Code)
	}
}

func TestReloadOpensAFreshPage(t *testing.T) {
	f := newFakeService()
	mux := newTestMux(f)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// The first page opens its dialog, then the user reloads.
	f.doc.Show(page.Modal)
	f.doc.SetAttr(page.Modal, "aria-hidden", "false")
	f.doc.LockScroll(true)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `const SESSION = "page2"`) {
		t.Fatal("expected a new page token on reload")
	}
	if !strings.Contains(body, `aria-hidden="true" hidden>`) {
		t.Fatal("expected the dialog closed on a fresh page")
	}
	if strings.Contains(body, `style="overflow: hidden"`) {
		t.Fatal("expected page scroll unlocked on a fresh page")
	}
}

func TestUnknownOrStoppedPageIsGone(t *testing.T) {
	f := newFakeService()
	mux := newTestMux(f)

	req := httptest.NewRequest(http.MethodPost, "/ui/close", nil)
	req.Header.Set(SessionHeader, "stale")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410 for an unknown page, got %d", rec.Code)
	}

	f.closeErr = loop.ErrStopped
	if rec := postForm(t, mux, "/ui/close", nil); rec.Code != http.StatusGone {
		t.Fatalf("expected 410 for a stopped page, got %d", rec.Code)
	}
}

func TestPageEvents(t *testing.T) {
	f := newFakeService()
	mux := newTestMux(f)

	cases := []struct {
		path string
		form url.Values
		call string
	}{
		{"/ui/input", url.Values{"text": {"pas"}}, "input:pas"},
		{"/ui/clear-search", nil, "clear-search"},
		{"/ui/clear-filters", nil, "clear-filters"},
		{"/ui/favorites-view", nil, "favorites-view"},
		{"/ui/retry", url.Values{"target": {"modal"}}, "retry:modal"},
		{"/ui/retry", url.Values{"target": {"bogus"}}, "retry:search"},
		{"/ui/view", url.Values{"id": {"7"}, "trigger": {"recipes|7"}}, "view:recipes|7"},
		{"/ui/close", nil, "close"},
	}
	for _, tc := range cases {
		f.calls = nil
		rec := postForm(t, mux, tc.path, tc.form)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: expected 204, got %d", tc.path, rec.Code)
		}
		if len(f.calls) != 1 || f.calls[0] != tc.call {
			t.Fatalf("%s: expected call %q, got %v", tc.path, tc.call, f.calls)
		}
	}

	rec := postForm(t, mux, "/ui/search", url.Values{"search": {"soup"}, "cuisine-filter": {"thai"}})
	if rec.Code != http.StatusNoContent || f.values["cuisine-filter"] != "thai" || f.values["search"] != "soup" {
		t.Fatalf("search not forwarded: %d %v", rec.Code, f.values)
	}
}

func TestFavoriteAndDarkModeReturnState(t *testing.T) {
	mux := newTestMux(newFakeService())

	rec := postForm(t, mux, "/ui/favorite", url.Values{"id": {"5"}})
	var fav struct {
		ID       int  `json:"id"`
		Favorite bool `json:"favorite"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&fav); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || fav.ID != 5 || !fav.Favorite {
		t.Fatalf("unexpected favorite response %d %+v", rec.Code, fav)
	}

	if rec := postForm(t, mux, "/ui/favorite", url.Values{"id": {"abc"}}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}

	rec = postForm(t, mux, "/ui/dark-mode", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"dark":true`) {
		t.Fatalf("unexpected dark mode response %d %s", rec.Code, rec.Body.String())
	}
}

func postKey(mux http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ui/key", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionHeader, testToken)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestKeyRoundTrip(t *testing.T) {
	f := newFakeService()
	mux := newTestMux(f)

	rec := postKey(mux, `{"key":"Tab","shift":true,"active":"modal-favorite"}`)
	var res modal.KeyResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Focus != "modal-close" || !res.Prevent {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.keys) != 1 || f.keys[0].Name != "Tab" || !f.keys[0].Shift || f.keys[0].Active != "modal-favorite" {
		t.Fatalf("key not decoded: %+v", f.keys)
	}

	if rec := postKey(mux, `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed key, got %d", rec.Code)
	}
}

func TestContactValidation(t *testing.T) {
	mux := newTestMux(newFakeService())

	rec := postForm(t, mux, "/ui/contact", url.Values{"name": {"Ann"}, "email": {"nope"}, "message": {"hi"}})
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), contact.InvalidEmailMessage) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = postForm(t, mux, "/ui/contact", url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "message": {"hi"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestExportHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ui/favorites/export.xlsx?session="+testToken, nil)
	newTestMux(newFakeService()).ServeHTTP(rec, req)
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "favorites.xlsx") || rec.Body.String() != "xlsx" {
		t.Fatalf("unexpected export response %v %q", rec.Header(), rec.Body.String())
	}
}

// readEvent returns the next server-sent event's name and data, skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestEventsStreamPatches(t *testing.T) {
	f := newFakeService()
	f.doc.SetHTML(page.Featured, "<p>featured</p>")
	srv := httptest.NewServer(newTestMux(f))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/ui/events?session="+testToken, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	name, data := readEvent(t, r)
	var snap page.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); name != "snapshot" || err != nil {
		t.Fatalf("expected an opening snapshot, got %q %v", name, err)
	}
	if snap.Markup[page.Featured] != "<p>featured</p>" || !snap.Hidden[page.Modal] {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	f.doc.SetHTML(page.Recipes, "<p>hi</p>")
	name, data = readEvent(t, r)
	var p page.Patch
	if err := json.Unmarshal([]byte(data), &p); name != "patch" || err != nil {
		t.Fatalf("expected a patch, got %q %v", name, err)
	}
	if p.Kind != page.PatchHTML || p.ID != page.Recipes || p.Value != "<p>hi</p>" {
		t.Fatalf("unexpected patch %+v", p)
	}

	close(f.done)
	if name, _ := readEvent(t, r); name != "expired" {
		t.Fatalf("expected expired once the page stops, got %q", name)
	}
}

func TestForwardResyncsAfterDroppedPatches(t *testing.T) {
	f := newFakeService()
	h := newHandlers(&fakeSessions{pages: map[string]*fakeService{}}, quietLogger())
	sub := f.broker.Subscribe(events.TopicPatch)
	defer f.broker.Unsubscribe(events.TopicPatch, sub)

	f.doc.SetHTML(page.Recipes, "<p>one</p>")
	var buf strings.Builder
	h.forward(&buf, f, f.broker, sub, <-sub)
	if strings.Contains(buf.String(), "event: snapshot") {
		t.Fatal("no snapshot expected while the stream keeps up")
	}

	for i := 0; i < 100; i++ {
		f.doc.SetHTML(page.Recipes, "<p>"+strconv.Itoa(i)+"</p>")
	}
	buf.Reset()
	h.forward(&buf, f, f.broker, sub, <-sub)
	out := buf.String()
	if !strings.Contains(out, "event: patch") || !strings.Contains(out, "event: snapshot") {
		t.Fatalf("expected the patch then a snapshot, got %q", out)
	}
	if !strings.Contains(out, `99\u003c/p\u003e`) {
		t.Fatal("snapshot must carry the latest state")
	}
	if len(sub) != 0 {
		t.Fatalf("stale patches must be discarded, %d left", len(sub))
	}
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var logs strings.Builder
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	defer slog.SetDefault(prev)

	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})
	if !strings.Contains(logs.String(), "ui: encode response") {
		t.Fatalf("expected the encode failure logged, got %q", logs.String())
	}
}
