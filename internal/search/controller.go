// Package search runs recipe searches against the result cache and the fetch
// adapter and renders them into the results region. It also owns the
// favorites view and the featured list, which render into the same page.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"recipe-finder/internal/cache"
	"recipe-finder/internal/domain"
	"recipe-finder/internal/favorites"
	"recipe-finder/internal/loop"
	"recipe-finder/internal/page"
	"recipe-finder/internal/render"
)

// Lister returns the summaries matching a descriptor.
type Lister interface {
	List(ctx context.Context, d domain.Descriptor) ([]domain.RecipeSummary, error)
}

// Options tunes the controller.
type Options struct {
	PageSize  int
	BatchSize int
}

// Controller owns the results region. All methods must run on the event loop.
type Controller struct {
	doc     *page.Document
	loop    *loop.Loop
	lister  Lister
	details favorites.DetailFetcher
	cache   *cache.Results
	favs    *favorites.Store
	render  *render.Renderer
	log     *slog.Logger
	opts    Options

	// generation is shared by searches and the favorites view; both write
	// the results region and only the latest request may.
	generation    uint64
	last          domain.Descriptor
	hasLast       bool
	favoritesView bool
}

// New creates a search controller.
func New(doc *page.Document, lp *loop.Loop, lister Lister, details favorites.DetailFetcher,
	results *cache.Results, favs *favorites.Store, r *render.Renderer, log *slog.Logger, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = domain.DefaultPageSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = favorites.DefaultBatchSize
	}
	return &Controller{
		doc:     doc,
		loop:    lp,
		lister:  lister,
		details: details,
		cache:   results,
		favs:    favs,
		render:  r,
		log:     log,
		opts:    opts,
	}
}

// Perform runs a search. A cached descriptor renders at once with no
// loading state; otherwise the loading indicator shows until the fetch
// lands. Leaves the favorites view.
func (c *Controller) Perform(ctx context.Context, d domain.Descriptor) {
	if d.PageSize <= 0 {
		d.PageSize = c.opts.PageSize
	}
	d = d.Normalize()

	c.last, c.hasLast = d, true
	c.generation++
	gen := c.generation
	c.setFavoritesView(false)

	c.doc.Hide(page.NoResults)
	c.doc.Hide(page.ErrorState)

	if results, ok := c.cache.Get(d); ok {
		hits, misses := c.cache.Stats()
		c.log.Debug("search: cache hit", "key", d.Key(), "hits", hits, "misses", misses)
		c.doc.Hide(page.Loading)
		c.showResults(d, results)
		return
	}

	c.doc.Show(page.Loading)
	c.loop.Go(func() func() {
		results, err := c.lister.List(ctx, d)
		return func() { c.finish(gen, d, results, err) }
	})
}

func (c *Controller) finish(gen uint64, d domain.Descriptor, results []domain.RecipeSummary, err error) {
	if err == nil {
		c.cache.Put(d, results)
	}
	if gen != c.generation {
		c.log.Debug("search: dropping stale response", "key", d.Key())
		return
	}
	c.doc.Hide(page.Loading)

	if err != nil {
		c.log.Error("search: failed", "query", d.Text, "error", err)
		c.showError(err.Error())
		return
	}
	c.showResults(d, results)
}

func (c *Controller) showResults(d domain.Descriptor, results []domain.RecipeSummary) {
	markup, err := c.render.Summaries(results, c.favs.IsFavorite)
	if err != nil {
		c.log.Error("search: render failed", "error", err)
		c.showError(err.Error())
		return
	}
	c.doc.SetHTML(page.Recipes, markup)

	if len(results) == 0 {
		c.doc.SetText(page.NoResultsText, render.NoResultsMessage(d.Text))
		c.doc.Show(page.NoResults)
	}
}

func (c *Controller) showError(message string) {
	c.doc.SetHTML(page.ErrorState, c.render.SearchError(message))
	c.doc.Show(page.ErrorState)
}

// Retry repeats the last search. Failures are never cached, so it refetches.
func (c *Controller) Retry(ctx context.Context) {
	if !c.hasLast {
		c.Perform(ctx, c.ReadInputs())
		return
	}
	c.Perform(ctx, c.last)
}

// Last returns the most recent descriptor, if any.
func (c *Controller) Last() (domain.Descriptor, bool) {
	return c.last, c.hasLast
}

// ReadInputs builds a descriptor from the search box and filter controls.
func (c *Controller) ReadInputs() domain.Descriptor {
	size, err := strconv.Atoi(strings.TrimSpace(c.doc.Value(page.PerPage)))
	if err != nil || size <= 0 {
		size = c.opts.PageSize
	}
	return domain.Descriptor{
		Text:     strings.TrimSpace(c.doc.Value(page.SearchInput)),
		PageSize: size,
		Filters: domain.Filters{
			Cuisine:      c.doc.Value(page.Cuisine),
			Diet:         c.doc.Value(page.Diet),
			Intolerances: c.doc.Value(page.Intolerances),
			MealType:     c.doc.Value(page.MealType),
		},
	}
}

// FavoritesView reports whether the results region shows favorites.
func (c *Controller) FavoritesView() bool { return c.favoritesView }

// ToggleFavoritesView switches between the favorites view and the search
// results for the current inputs.
func (c *Controller) ToggleFavoritesView(ctx context.Context) {
	if c.favoritesView {
		c.Perform(ctx, c.ReadInputs())
		return
	}
	c.ShowFavorites(ctx)
}

// ShowFavorites renders the favorite recipes, fetching their details in
// batches.
func (c *Controller) ShowFavorites(ctx context.Context) {
	c.generation++
	gen := c.generation
	c.setFavoritesView(true)

	c.doc.Hide(page.NoResults)
	c.doc.Hide(page.ErrorState)

	ids := c.favs.IDs()
	if len(ids) == 0 {
		c.doc.Hide(page.Loading)
		c.doc.SetHTML(page.Recipes, render.NoFavorites)
		return
	}

	c.doc.Show(page.Loading)
	c.loop.Go(func() func() {
		details := favorites.FetchAll(ctx, ids, c.opts.BatchSize, c.details)
		return func() {
			if gen != c.generation {
				c.log.Debug("search: dropping stale favorites view")
				return
			}
			c.doc.Hide(page.Loading)

			list := make([]domain.RecipeSummary, 0, len(details))
			for _, d := range details {
				list = append(list, d.AsSummary())
			}
			markup, err := c.render.Summaries(list, c.favs.IsFavorite)
			if err != nil {
				c.doc.SetHTML(page.Recipes, render.FavoritesError(err.Error()))
				return
			}
			c.doc.SetHTML(page.Recipes, markup)
		}
	})
}

// RefreshFavoritesLabel rewrites the favorites toggle for the current count.
func (c *Controller) RefreshFavoritesLabel() {
	if c.favoritesView {
		c.doc.SetText(page.FavoritesToggle, "Show All Recipes")
		return
	}
	c.doc.SetText(page.FavoritesToggle, fmt.Sprintf("My Favorites (%d)", c.favs.Len()))
}

func (c *Controller) setFavoritesView(on bool) {
	c.favoritesView = on
	c.doc.SetAttr(page.FavoritesToggle, "aria-pressed", strconv.FormatBool(on))
	c.RefreshFavoritesLabel()
}

// LoadFeatured fills the featured region with count recipes.
func (c *Controller) LoadFeatured(ctx context.Context, count int) {
	d := domain.Descriptor{PageSize: count}.Normalize()
	if results, ok := c.cache.Get(d); ok {
		c.showFeatured(results, nil)
		return
	}
	c.loop.Go(func() func() {
		results, err := c.lister.List(ctx, d)
		return func() {
			if err == nil {
				c.cache.Put(d, results)
			}
			c.showFeatured(results, err)
		}
	})
}

func (c *Controller) showFeatured(results []domain.RecipeSummary, err error) {
	var markup string
	if err == nil {
		markup, err = c.render.Summaries(results, c.favs.IsFavorite)
	}
	if err != nil {
		c.log.Warn("search: featured list failed", "error", err)
		c.doc.SetHTML(page.Featured, render.FeaturedFail)
		return
	}
	c.doc.SetHTML(page.Featured, markup)
}
