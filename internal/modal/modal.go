// Package modal drives the recipe detail dialog: its open/loading/ready/error
// states, the keyboard focus trap and focus restore on close.
package modal

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"recipe-finder/internal/domain"
	"recipe-finder/internal/loop"
	"recipe-finder/internal/page"
	"recipe-finder/internal/render"

	"github.com/PuerkitoBio/goquery"
)

// State of the dialog.
type State int

const (
	Closed State = iota
	OpenLoading
	OpenReady
	OpenError
)

func (s State) String() string {
	switch s {
	case OpenLoading:
		return "open-loading"
	case OpenReady:
		return "open-ready"
	case OpenError:
		return "open-error"
	default:
		return "closed"
	}
}

// FocusableSelector matches the elements the trap cycles through.
const FocusableSelector = `button, [href], input, select, textarea, [tabindex]:not([tabindex="-1"])`

// CloseID is the dialog's close control.
const CloseID = "modal-close"

// DetailFetcher loads one recipe.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id int) (*domain.RecipeDetail, error)
}

// Key is a key press reported while the dialog may be open. Active is the
// element the browser had focused, if known.
type Key struct {
	Name   string `json:"key"`
	Shift  bool   `json:"shift"`
	Active string `json:"active"`
}

// KeyResult tells the browser where focus goes and whether to suppress the
// default action.
type KeyResult struct {
	Focus   string `json:"focus,omitempty"`
	Prevent bool   `json:"prevent"`
	Closed  bool   `json:"closed,omitempty"`
}

// Controller owns the single dialog instance. All methods must run on the
// event loop.
type Controller struct {
	doc        *page.Document
	loop       *loop.Loop
	fetcher    DetailFetcher
	render     *render.Renderer
	isFavorite func(id int) bool
	log        *slog.Logger

	state      State
	generation uint64
	recipeID   int
	trigger    string
	focusables []string
}

// New creates a closed dialog controller.
func New(doc *page.Document, lp *loop.Loop, fetcher DetailFetcher, r *render.Renderer, isFavorite func(int) bool, log *slog.Logger) *Controller {
	return &Controller{
		doc:        doc,
		loop:       lp,
		fetcher:    fetcher,
		render:     r,
		isFavorite: isFavorite,
		log:        log,
	}
}

// State returns the dialog state.
func (c *Controller) State() State { return c.state }

// RecipeID returns the recipe shown, 0 when closed.
func (c *Controller) RecipeID() int { return c.recipeID }

// Focusables returns the current trap set, first to last.
func (c *Controller) Focusables() []string { return append([]string(nil), c.focusables...) }

// Open shows the dialog for id and starts loading its details. trigger is the
// element that requested it; focus returns there on close. Opening while
// already open replaces the content and keeps the original trigger.
func (c *Controller) Open(ctx context.Context, id int, trigger string) {
	if c.state == Closed {
		c.trigger = trigger
	}
	c.recipeID = id
	c.load(ctx)
}

// Retry reloads the current recipe after a failure.
func (c *Controller) Retry(ctx context.Context) {
	if c.state != OpenError {
		return
	}
	c.load(ctx)
}

func (c *Controller) load(ctx context.Context) {
	c.generation++
	gen, id := c.generation, c.recipeID

	c.state = OpenLoading
	c.doc.SetHTML(page.ModalBody, c.render.ModalLoading())
	c.doc.Show(page.Modal)
	c.doc.SetAttr(page.Modal, "aria-hidden", "false")
	c.doc.LockScroll(true)
	c.refreshTrap()
	c.focusFirst()

	c.loop.Go(func() func() {
		d, err := c.fetcher.FetchDetail(ctx, id)
		return func() { c.finish(gen, id, d, err) }
	})
}

func (c *Controller) finish(gen uint64, id int, d *domain.RecipeDetail, err error) {
	if gen != c.generation || c.state != OpenLoading {
		c.log.Debug("modal: dropping stale detail response", "id", id)
		return
	}

	if err == nil && d == nil {
		err = domain.ErrNotFound
	}
	var markup string
	if err == nil {
		markup, err = c.render.Detail(*d, c.isFavorite(id))
	}
	if err != nil {
		c.log.Warn("modal: failed to load recipe", "id", id, "error", err)
		c.state = OpenError
		c.doc.SetHTML(page.ModalBody, c.render.ModalError(id, errorText(err)))
	} else {
		c.state = OpenReady
		c.doc.SetHTML(page.ModalBody, markup)
		c.doc.SetAttr(page.Modal, "aria-labelledby", "modal-title")
	}
	c.refreshTrap()
	c.focusFirst()
}

// Close hides the dialog, restores page scroll and returns focus to the
// element that opened it. Any in-flight load is ignored when it lands.
func (c *Controller) Close() {
	if c.state == Closed {
		return
	}
	c.generation++
	c.state = Closed
	c.recipeID = 0
	c.focusables = nil

	c.doc.SetAttr(page.Modal, "aria-hidden", "true")
	c.doc.Hide(page.Modal)
	c.doc.LockScroll(false)

	trigger := c.trigger
	c.trigger = ""
	if trigger != "" {
		c.doc.Focus(trigger)
	}
}

// HandleKey applies Escape and the Tab focus trap. Keys are ignored while
// the dialog is closed.
func (c *Controller) HandleKey(k Key) KeyResult {
	if c.state == Closed {
		return KeyResult{}
	}

	switch k.Name {
	case "Escape":
		trigger := c.trigger
		c.Close()
		return KeyResult{Focus: trigger, Prevent: true, Closed: true}
	case "Tab":
	default:
		return KeyResult{}
	}

	if len(c.focusables) == 0 {
		return KeyResult{Prevent: true}
	}
	first, last := c.focusables[0], c.focusables[len(c.focusables)-1]

	active := k.Active
	if active == "" {
		active = c.doc.Focused()
	}

	var target string
	switch {
	case !c.contains(active):
		target = first
		if k.Shift {
			target = last
		}
	case k.Shift && active == first:
		target = last
	case !k.Shift && active == last:
		target = first
	default:
		// Inside the set, away from the edges: the browser moves focus itself.
		return KeyResult{}
	}

	c.doc.Focus(target)
	return KeyResult{Focus: target, Prevent: true}
}

// RefreshTrap recomputes the focusable set after the dialog content changed.
func (c *Controller) RefreshTrap() {
	if c.state == Closed {
		return
	}
	c.refreshTrap()
}

func (c *Controller) refreshTrap() {
	c.focusables = Focusables(render.CloseButton + c.doc.HTML(page.ModalBody))
}

func (c *Controller) focusFirst() {
	if len(c.focusables) > 0 {
		c.doc.Focus(c.focusables[0])
	}
}

func (c *Controller) contains(id string) bool {
	for _, f := range c.focusables {
		if f == id {
			return true
		}
	}
	return false
}

// Focusables lists the focusable elements of a dialog fragment in document
// order. Elements are named by id; an element without one is named
// "modal-body:<index>", its position among all focusables.
func Focusables(fragment string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find(FocusableSelector).Each(func(i int, s *goquery.Selection) {
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}
		if id, ok := s.Attr("id"); ok && id != "" {
			out = append(out, id)
			return
		}
		out = append(out, page.ModalBody+":"+strconv.Itoa(i))
	})
	return out
}

func errorText(err error) string {
	if errors.Is(err, domain.ErrNotFound) {
		return "Recipe not found"
	}
	return err.Error()
}
