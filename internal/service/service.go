// Path: internal/service/service.go
package service

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"recipe-finder/internal/cache"
	"recipe-finder/internal/config"
	"recipe-finder/internal/contact"
	"recipe-finder/internal/debounce"
	"recipe-finder/internal/domain"
	"recipe-finder/internal/events"
	"recipe-finder/internal/favorites"
	"recipe-finder/internal/loop"
	"recipe-finder/internal/modal"
	"recipe-finder/internal/page"
	"recipe-finder/internal/render"
	"recipe-finder/internal/search"
)

// Retry targets.
const (
	RetrySearch = "search"
	RetryModal  = "modal"
)

// Service is one page's application state and the only writer of it. Every
// public method hands its work to the event loop.
type Service struct {
	cfg     config.ClientConfig
	kv      domain.KeyValueStore
	fetcher RecipeFetcher
	broker  *events.Broker
	log     *slog.Logger

	doc     *page.Document
	loop    *loop.Loop
	results *cache.Results
	favs    *favorites.Store
	search  *search.Controller
	modal   *modal.Controller

	searchSoon func()
	dark       bool

	// runCtx is replaced in Start before the loop runs; only loop tasks read it.
	runCtx   context.Context
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewService loads the persisted preferences and builds the page state.
func NewService(ctx context.Context, cfg config.ClientConfig, kv domain.KeyValueStore,
	fetcher RecipeFetcher, broker *events.Broker, log *slog.Logger) *Service {
	if cfg.FavoritesBatchSize <= 0 {
		cfg.FavoritesBatchSize = favorites.DefaultBatchSize
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = domain.DefaultPageSize
	}
	if cfg.FeaturedCount <= 0 {
		cfg.FeaturedCount = 6
	}

	s := &Service{
		cfg:      cfg,
		kv:       kv,
		fetcher:  fetcher,
		broker:   broker,
		log:      log,
		doc:      page.New(broker),
		loop:     loop.New(0),
		results:  cache.NewResults(),
		runCtx:   context.Background(),
		stopChan: make(chan struct{}),
	}

	r := render.New()
	s.favs = favorites.Load(ctx, kv, broker, log)
	s.dark = loadDarkMode(ctx, kv, log)
	s.search = search.New(s.doc, s.loop, fetcher, fetcher.FetchDetail, s.results, s.favs, r, log,
		search.Options{PageSize: cfg.DefaultPageSize, BatchSize: cfg.FavoritesBatchSize})
	s.modal = modal.New(s.doc, s.loop, fetcher, r, s.favs.IsFavorite, log)

	// Nothing else holds the document yet, so the first render can carry the theme.
	applyDarkMode(s.doc, s.dark)
	s.doc.SetValue(page.PerPage, strconv.Itoa(cfg.DefaultPageSize))
	s.searchSoon = debounce.Void(time.Duration(cfg.DebounceMillis)*time.Millisecond, func() {
		s.loop.Post(s.searchNow)
	})
	return s
}

// Start runs the event loop until ctx is cancelled or Stop is called. It
// renders the initial page first.
func (s *Service) Start(ctx context.Context) error {
	s.log.Debug("page: starting")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.runCtx = ctx

	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	toggles := s.broker.Subscribe(events.TopicFavoriteToggled)
	defer s.broker.Unsubscribe(events.TopicFavoriteToggled, toggles)
	go s.watchFavorites(ctx, toggles)

	s.loop.Post(s.bootstrap)
	s.loop.Run(ctx)

	s.log.Debug("page: stopped")
	return nil
}

// Stop ends Start.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Done is closed once the event loop has stopped.
func (s *Service) Done() <-chan struct{} { return s.loop.Done() }

func (s *Service) bootstrap() {
	s.search.LoadFeatured(s.runCtx, s.cfg.FeaturedCount)
	s.searchNow()
}

// watchFavorites keeps the favorites toggle label in step with the set.
func (s *Service) watchFavorites(ctx context.Context, toggles <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-toggles:
			if !ok {
				return
			}
			if t, ok := ev.Data.(events.FavoriteToggled); ok {
				s.log.Debug("favorites: toggled", "id", t.ID, "favorite", t.Favorite, "count", t.Count)
			}
			s.loop.Post(s.search.RefreshFavoritesLabel)
		}
	}
}

func (s *Service) searchNow() {
	s.search.Perform(s.runCtx, s.search.ReadInputs())
}

// Document returns the page the service renders into.
func (s *Service) Document() *page.Document { return s.doc }

// Broker returns the broker document patches are published on.
func (s *Service) Broker() *events.Broker { return s.broker }

// Input records the search box text and schedules a debounced search.
func (s *Service) Input(ctx context.Context, text string) error {
	return s.loop.Call(ctx, func() {
		s.doc.SetValue(page.SearchInput, text)
		s.searchSoon()
	})
}

// Search stores the given control values and searches immediately. Unknown
// controls are ignored.
func (s *Service) Search(ctx context.Context, values map[string]string) error {
	return s.loop.Call(ctx, func() {
		for id, v := range values {
			if isSearchControl(id) {
				s.doc.SetValue(id, v)
			}
		}
		s.searchNow()
	})
}

// Retry repeats the failed search or detail load.
func (s *Service) Retry(ctx context.Context, target string) error {
	return s.loop.Call(ctx, func() {
		if target == RetryModal {
			s.modal.Retry(s.runCtx)
			return
		}
		s.search.Retry(s.runCtx)
	})
}

// ClearSearch empties and focuses the search box, then searches.
func (s *Service) ClearSearch(ctx context.Context) error {
	return s.loop.Call(ctx, func() {
		s.doc.SetValue(page.SearchInput, "")
		s.doc.Focus(page.SearchInput)
		s.searchNow()
	})
}

// ClearFilters resets every filter control, then searches.
func (s *Service) ClearFilters(ctx context.Context) error {
	return s.loop.Call(ctx, func() {
		for _, id := range page.FilterControls {
			s.doc.SetValue(id, "")
		}
		s.searchNow()
	})
}

// ToggleFavoritesView switches between favorites and search results.
func (s *Service) ToggleFavoritesView(ctx context.Context) error {
	return s.loop.Call(ctx, func() { s.search.ToggleFavoritesView(s.runCtx) })
}

// ToggleFavorite flips id in the favorites set and updates every rendered
// badge for it. A failure to persist is logged; the toggle stands.
func (s *Service) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	var favorite bool
	err := s.loop.Call(ctx, func() {
		var perr error
		favorite, perr = s.favs.Toggle(s.runCtx, id)
		if perr != nil {
			s.log.Warn("favorites: toggle not persisted", "id", id, "error", perr)
		}

		s.doc.Rewrite(func(_, markup string) (string, bool) {
			return render.PatchFavoriteBadges(markup, id, favorite)
		}, render.FavoriteBadgeDeltas(id, favorite)...)
		s.modal.RefreshTrap()

		if s.search.FavoritesView() {
			s.search.ShowFavorites(s.runCtx)
			return
		}
		s.search.RefreshFavoritesLabel()
	})
	return favorite, err
}

// View opens the detail dialog for id. trigger names the element to focus
// when it closes.
func (s *Service) View(ctx context.Context, id int, trigger string) error {
	if id <= 0 {
		return domain.ErrInvalidID
	}
	return s.loop.Call(ctx, func() { s.modal.Open(s.runCtx, id, trigger) })
}

// Close closes the detail dialog.
func (s *Service) Close(ctx context.Context) error {
	return s.loop.Call(ctx, s.modal.Close)
}

// Key handles a key press: the dialog's Escape and Tab trap while it is
// open, otherwise Enter in the search box or a filter searches at once.
func (s *Service) Key(ctx context.Context, k modal.Key) (modal.KeyResult, error) {
	var res modal.KeyResult
	err := s.loop.Call(ctx, func() {
		if s.modal.State() != modal.Closed {
			res = s.modal.HandleKey(k)
			return
		}
		if k.Name == "Enter" && isSearchControl(k.Active) {
			s.searchNow()
			res = modal.KeyResult{Prevent: true}
		}
	})
	return res, err
}

// ToggleDarkMode flips and persists the theme.
func (s *Service) ToggleDarkMode(ctx context.Context) (bool, error) {
	var dark bool
	err := s.loop.Call(ctx, func() {
		s.dark = !s.dark
		dark = s.dark
		applyDarkMode(s.doc, dark)
		if err := saveDarkMode(s.runCtx, s.kv, dark); err != nil {
			s.log.Warn("preferences: dark mode not persisted", "error", err)
		}
	})
	return dark, err
}

// SubmitContact validates the contact form. Valid messages are logged and
// the form is reset; nothing is delivered anywhere.
func (s *Service) SubmitContact(ctx context.Context, m domain.ContactMessage) error {
	m = contact.Normalize(m)
	verr := contact.Validate(m)

	err := s.loop.Call(ctx, func() {
		if verr != nil {
			s.doc.SetAttr(page.ContactStatus, "class", "contact-status error")
			s.doc.SetText(page.ContactStatus, contact.Message(verr))
			s.doc.Show(page.ContactStatus)
			return
		}
		s.log.Info("contact: message submitted", "name", m.Name, "email", m.Email)
		s.doc.SetValue(page.ContactName, "")
		s.doc.SetValue(page.ContactEmail, "")
		s.doc.SetValue(page.ContactMessage, "")
		s.doc.SetAttr(page.ContactStatus, "class", "contact-status success")
		s.doc.SetText(page.ContactStatus, contact.SuccessMessage)
		s.doc.Show(page.ContactStatus)
	})
	if err != nil {
		return err
	}
	return verr
}

func isSearchControl(id string) bool {
	return id == page.SearchInput || id == page.PerPage || slices.Contains(page.FilterControls, id)
}
