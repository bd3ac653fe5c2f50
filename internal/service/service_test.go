package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"recipe-finder/internal/config"
	"recipe-finder/internal/contact"
	"recipe-finder/internal/domain"
	"recipe-finder/internal/events"
	"recipe-finder/internal/favorites"
	"recipe-finder/internal/modal"
	"recipe-finder/internal/page"
	"recipe-finder/internal/storage"

	"github.com/xuri/excelize/v2"
)

type fakeFetcher struct {
	mu      sync.Mutex
	queries []domain.Descriptor
}

func (f *fakeFetcher) List(_ context.Context, d domain.Descriptor) ([]domain.RecipeSummary, error) {
	f.mu.Lock()
	f.queries = append(f.queries, d)
	f.mu.Unlock()
	return []domain.RecipeSummary{{ID: 1, Title: "Tomato Soup"}, {ID: 2, Title: "Pasta"}}, nil
}

func (f *fakeFetcher) FetchDetail(_ context.Context, id int) (*domain.RecipeDetail, error) {
	four := 4
	return &domain.RecipeDetail{ID: domain.FlexibleInt(id), Title: "Recipe " + strings.Repeat("I", id), Servings: &four}, nil
}

func (f *fakeFetcher) searches() []domain.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Descriptor(nil), f.queries...)
}

func testConfig() config.ClientConfig {
	return config.ClientConfig{DefaultPageSize: 12, DebounceMillis: 50, FavoritesBatchSize: 5, FeaturedCount: 6}
}

// startService runs a service and waits for the initial render.
func startService(t *testing.T, kv domain.KeyValueStore) (*Service, *fakeFetcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fakeFetcher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewService(ctx, testConfig(), kv, f, events.NewBroker(), log)
	go s.Start(ctx)

	waitFor(t, func() bool { return strings.Contains(s.doc.HTML(page.Recipes), "recipe-card") })
	waitFor(t, func() bool { return strings.Contains(s.doc.HTML(page.Featured), "recipe-card") })
	return s, f
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBootstrapRestoresPreferences(t *testing.T) {
	kv := storage.NewMemoryKV()
	ctx := context.Background()
	kv.Set(ctx, DarkModeKey, "true")
	kv.Set(ctx, favorites.StorageKey, "[2]")

	s, f := startService(t, kv)

	if !s.doc.Dark() || s.doc.HTML(page.DarkToggle) != "☀️" {
		t.Fatal("expected dark mode restored")
	}
	if s.doc.Attr(page.DarkToggle, "aria-label") != "Switch to light mode" {
		t.Fatalf("unexpected toggle label %q", s.doc.Attr(page.DarkToggle, "aria-label"))
	}
	if s.doc.HTML(page.FavoritesToggle) != "My Favorites (1)" {
		t.Fatalf("unexpected favorites label %q", s.doc.HTML(page.FavoritesToggle))
	}
	if !strings.Contains(s.doc.HTML(page.Recipes), `favorited" data-id="2"`) {
		t.Fatalf("expected persisted favorite to render as favorited: %q", s.doc.HTML(page.Recipes))
	}

	got := f.searches()
	if len(got) != 2 {
		t.Fatalf("expected featured and initial search, got %+v", got)
	}
}

func TestMalformedDarkModeFallsBackToLight(t *testing.T) {
	kv := storage.NewMemoryKV()
	kv.Set(context.Background(), DarkModeKey, "sometimes")

	s, _ := startService(t, kv)
	if s.doc.Dark() || s.doc.HTML(page.DarkToggle) != "🌙" {
		t.Fatal("expected light mode")
	}
}

func TestToggleFavoriteUpdatesEveryBadge(t *testing.T) {
	kv := storage.NewMemoryKV()
	s, _ := startService(t, kv)
	ctx := context.Background()

	fav, err := s.ToggleFavorite(ctx, 1)
	if err != nil || !fav {
		t.Fatalf("toggle: fav=%v err=%v", fav, err)
	}
	for _, region := range []string{page.Recipes, page.Featured} {
		if !strings.Contains(s.doc.HTML(region), `favorited" data-id="1"`) {
			t.Fatalf("badge in %s not updated: %q", region, s.doc.HTML(region))
		}
		if strings.Contains(s.doc.HTML(region), `favorited" data-id="2"`) {
			t.Fatalf("unrelated badge in %s changed", region)
		}
	}
	if raw, _, _ := kv.Get(ctx, favorites.StorageKey); raw != "[1]" {
		t.Fatalf("expected persisted [1], got %q", raw)
	}
	if s.doc.HTML(page.FavoritesToggle) != "My Favorites (1)" {
		t.Fatalf("unexpected label %q", s.doc.HTML(page.FavoritesToggle))
	}

	if fav, _ := s.ToggleFavorite(ctx, 1); fav {
		t.Fatal("second toggle should remove the favorite")
	}
	if raw, _, _ := kv.Get(ctx, favorites.StorageKey); raw != "[]" {
		t.Fatalf("expected persisted [], got %q", raw)
	}
}

func TestToggleFavoritePublishesOnlyBadgeDeltas(t *testing.T) {
	s, _ := startService(t, storage.NewMemoryKV())
	ctx := context.Background()
	if err := s.View(ctx, 1, "recipes|1"); err != nil {
		t.Fatalf("view: %v", err)
	}
	s.loop.Wait()

	sub := s.broker.Subscribe(events.TopicPatch)
	defer s.broker.Unsubscribe(events.TopicPatch, sub)
	if _, err := s.ToggleFavorite(ctx, 1); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	deltas := 0
	for drained := false; !drained; {
		select {
		case ev := <-sub:
			p := ev.Data.(page.Patch)
			if p.Kind == page.PatchHTML && (p.ID == page.Recipes || p.ID == page.Featured || p.ID == page.ModalBody) {
				t.Fatalf("toggle re-rendered region %s", p.ID)
			}
			if p.Selector == `.favorite-btn[data-id="1"]` {
				deltas++
			}
		default:
			drained = true
		}
	}
	if deltas != 3 {
		t.Fatalf("expected 3 badge deltas, got %d", deltas)
	}
	if !strings.Contains(s.doc.HTML(page.ModalBody), "favorited") {
		t.Fatal("server-side dialog markup must still be updated")
	}
}

func TestEnterSearchesAndInputIsDebounced(t *testing.T) {
	s, f := startService(t, storage.NewMemoryKV())
	ctx := context.Background()
	before := len(f.searches())

	for _, text := range []string{"p", "pa", "pas"} {
		if err := s.Input(ctx, text); err != nil {
			t.Fatalf("input: %v", err)
		}
	}
	waitFor(t, func() bool { return len(f.searches()) > before })
	time.Sleep(150 * time.Millisecond)
	got := f.searches()
	if len(got) != before+1 || got[before].Text != "pas" {
		t.Fatalf("expected one debounced search for the last input, got %+v", got[before:])
	}

	res, err := s.Key(ctx, modal.Key{Name: "Enter", Active: page.Cuisine})
	if err != nil || !res.Prevent {
		t.Fatalf("enter: %+v %v", res, err)
	}
	s.loop.Wait()
	// "pas" is cached by now, so Enter renders without another fetch.
	if n := len(f.searches()); n != before+1 {
		t.Fatalf("expected cached search, got %d fetches", n-before)
	}
}

func TestViewAndEscapeRestoreFocus(t *testing.T) {
	s, _ := startService(t, storage.NewMemoryKV())
	ctx := context.Background()

	if err := s.View(ctx, 2, "view-trigger"); err != nil {
		t.Fatalf("view: %v", err)
	}
	s.loop.Wait()
	if !strings.Contains(s.doc.HTML(page.ModalBody), "Recipe II") {
		t.Fatalf("detail not rendered: %q", s.doc.HTML(page.ModalBody))
	}

	res, err := s.Key(ctx, modal.Key{Name: "Escape"})
	if err != nil || !res.Closed {
		t.Fatalf("escape: %+v %v", res, err)
	}
	if s.doc.Focused() != "view-trigger" || s.doc.ScrollLocked() {
		t.Fatalf("focus=%q locked=%v", s.doc.Focused(), s.doc.ScrollLocked())
	}

	if err := s.View(ctx, 0, ""); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestToggleDarkModePersists(t *testing.T) {
	kv := storage.NewMemoryKV()
	s, _ := startService(t, kv)

	dark, err := s.ToggleDarkMode(context.Background())
	if err != nil || !dark {
		t.Fatalf("toggle: %v %v", dark, err)
	}
	if raw, _, _ := kv.Get(context.Background(), DarkModeKey); raw != "true" {
		t.Fatalf("expected persisted true, got %q", raw)
	}
}

func TestSubmitContact(t *testing.T) {
	s, _ := startService(t, storage.NewMemoryKV())
	ctx := context.Background()

	err := s.SubmitContact(ctx, domain.ContactMessage{Name: "Ann", Email: "ann@example", Message: "hi"})
	if !errors.Is(err, contact.ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got %v", err)
	}
	if s.doc.HTML(page.ContactStatus) != "Please enter a valid email address." {
		t.Fatalf("unexpected status %q", s.doc.HTML(page.ContactStatus))
	}

	s.doc.SetValue(page.ContactName, "Ann")
	err = s.SubmitContact(ctx, domain.ContactMessage{Name: " Ann ", Email: "ann@example.com", Message: "hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.doc.HTML(page.ContactStatus) != contact.SuccessMessage || s.doc.Value(page.ContactName) != "" {
		t.Fatal("expected success message and a reset form")
	}
}

func TestExportFavorites(t *testing.T) {
	s, _ := startService(t, storage.NewMemoryKV())
	ctx := context.Background()
	for _, id := range []int{1, 3} {
		if _, err := s.ToggleFavorite(ctx, id); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := s.ExportFavorites(ctx, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and two rows, got %v", rows)
	}
	if rows[1][0] != "1" || rows[2][1] != "Recipe III" || rows[1][2] != "4" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
