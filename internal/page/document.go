// Package page models the document the client renders into: named regions of
// markup, their visibility and attributes, form control values, keyboard
// focus and the body scroll lock. Every mutation is published as a Patch so
// a connected browser can mirror it.
package page

import (
	"html"
	"sort"
	"sync"

	"recipe-finder/internal/events"
)

// Region and control IDs.
const (
	Recipes         = "recipes"
	Featured        = "featured-list"
	Loading         = "loading"
	NoResults       = "no-results"
	NoResultsText   = "no-results-message"
	ErrorState      = "error-state"
	Modal           = "modal"
	ModalBody       = "modal-body"
	FavoritesToggle = "favorites-toggle"
	DarkToggle      = "dark-mode-toggle"
	ContactStatus   = "contact-status"

	SearchInput  = "search"
	PerPage      = "perpage"
	Cuisine      = "cuisine-filter"
	Diet         = "diet-filter"
	Intolerances = "intolerances-filter"
	MealType     = "meal-type-filter"

	ContactName    = "contact-name"
	ContactEmail   = "contact-email"
	ContactMessage = "contact-message"
)

// FilterControls lists the filter selects in display order.
var FilterControls = []string{Cuisine, Diet, Intolerances, MealType}

// PatchKind says which part of an element a Patch changes.
type PatchKind string

const (
	PatchHTML   PatchKind = "html"
	PatchHidden PatchKind = "hidden"
	PatchAttr   PatchKind = "attr"
	PatchValue  PatchKind = "value"
	PatchFocus  PatchKind = "focus"
	PatchScroll PatchKind = "scroll"
	PatchTheme  PatchKind = "theme"
	PatchClass  PatchKind = "class"
	PatchText   PatchKind = "text"
)

// Patch is one document change. A Patch with a Selector addresses every
// matching element instead of the element named by ID. For PatchClass, Name
// is the class and a non-empty Value adds it.
type Patch struct {
	Kind     PatchKind `json:"kind"`
	ID       string    `json:"id,omitempty"`
	Selector string    `json:"selector,omitempty"`
	Name   string    `json:"name,omitempty"`
	Value  string    `json:"value,omitempty"`
	Hidden bool      `json:"hidden,omitempty"`
	Locked bool      `json:"locked,omitempty"`
	Dark   bool      `json:"dark,omitempty"`
}

// Document is the page state. Safe for concurrent use, but all writers are
// expected to run on the event loop.
type Document struct {
	mu           sync.RWMutex
	markup       map[string]string
	hidden       map[string]bool
	attrs        map[string]map[string]string
	values       map[string]string
	focused      string
	scrollLocked bool
	dark         bool
	broker       *events.Broker
}

// New creates a document with the status regions hidden and the dialog closed.
// broker may be nil.
func New(broker *events.Broker) *Document {
	d := &Document{
		markup: make(map[string]string),
		hidden: map[string]bool{Loading: true, NoResults: true, ErrorState: true, Modal: true},
		attrs:  map[string]map[string]string{Modal: {"aria-hidden": "true"}},
		values: map[string]string{PerPage: "12"},
		broker: broker,
	}
	return d
}

func (d *Document) publish(p Patch) {
	if d.broker != nil {
		d.broker.Publish(events.TopicPatch, p)
	}
}

// SetHTML replaces the inner markup of id. Callers pass already escaped markup.
func (d *Document) SetHTML(id, markup string) {
	d.mu.Lock()
	d.markup[id] = markup
	d.mu.Unlock()
	d.publish(Patch{Kind: PatchHTML, ID: id, Value: markup})
}

// SetText replaces the content of id with escaped text.
func (d *Document) SetText(id, text string) {
	d.SetHTML(id, html.EscapeString(text))
}

// HTML returns the inner markup of id.
func (d *Document) HTML(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.markup[id]
}

// Rewrite passes every region's markup through fn and stores the regions fn
// changed. Without deltas each changed region is published whole; with deltas
// only the deltas are published, once, if any region changed.
func (d *Document) Rewrite(fn func(id, markup string) (string, bool), deltas ...Patch) {
	d.mu.Lock()
	ids := make([]string, 0, len(d.markup))
	for id := range d.markup {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var changed []Patch
	for _, id := range ids {
		if out, ok := fn(id, d.markup[id]); ok {
			d.markup[id] = out
			changed = append(changed, Patch{Kind: PatchHTML, ID: id, Value: out})
		}
	}
	d.mu.Unlock()

	if len(deltas) > 0 && len(changed) > 0 {
		changed = deltas
	}
	for _, p := range changed {
		d.publish(p)
	}
}

// Show clears the hidden flag of id.
func (d *Document) Show(id string) { d.setHidden(id, false) }

// Hide sets the hidden flag of id.
func (d *Document) Hide(id string) { d.setHidden(id, true) }

func (d *Document) setHidden(id string, hidden bool) {
	d.mu.Lock()
	d.hidden[id] = hidden
	d.mu.Unlock()
	d.publish(Patch{Kind: PatchHidden, ID: id, Hidden: hidden})
}

// Hidden reports whether id is hidden.
func (d *Document) Hidden(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hidden[id]
}

// SetAttr sets an attribute on id.
func (d *Document) SetAttr(id, name, value string) {
	d.mu.Lock()
	if d.attrs[id] == nil {
		d.attrs[id] = make(map[string]string)
	}
	d.attrs[id][name] = value
	d.mu.Unlock()
	d.publish(Patch{Kind: PatchAttr, ID: id, Name: name, Value: value})
}

// Attr returns an attribute of id, "" when unset.
func (d *Document) Attr(id, name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.attrs[id][name]
}

// SetValue sets the value of a form control.
func (d *Document) SetValue(id, value string) {
	d.mu.Lock()
	d.values[id] = value
	d.mu.Unlock()
	d.publish(Patch{Kind: PatchValue, ID: id, Value: value})
}

// Value returns the value of a form control.
func (d *Document) Value(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.values[id]
}

// Focus moves keyboard focus to id; "" blurs.
func (d *Document) Focus(id string) {
	d.mu.Lock()
	d.focused = id
	d.mu.Unlock()
	d.publish(Patch{Kind: PatchFocus, ID: id})
}

// Focused returns the focused element id.
func (d *Document) Focused() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.focused
}

// LockScroll toggles the body scroll lock.
func (d *Document) LockScroll(locked bool) {
	d.mu.Lock()
	d.scrollLocked = locked
	d.mu.Unlock()
	d.publish(Patch{Kind: PatchScroll, Locked: locked})
}

// ScrollLocked reports whether page scroll is disabled.
func (d *Document) ScrollLocked() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scrollLocked
}

// SetDark switches the dark-mode body class.
func (d *Document) SetDark(dark bool) {
	d.mu.Lock()
	d.dark = dark
	d.mu.Unlock()
	d.publish(Patch{Kind: PatchTheme, Dark: dark})
}

// Dark reports whether dark mode is on.
func (d *Document) Dark() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dark
}

// Snapshot is a point-in-time copy used to render the full page and to
// resync a browser that missed patches.
type Snapshot struct {
	Markup       map[string]string            `json:"markup"`
	Hidden       map[string]bool              `json:"hidden"`
	Attrs        map[string]map[string]string `json:"attrs"`
	Values       map[string]string            `json:"values"`
	Focused      string                       `json:"focused,omitempty"`
	ScrollLocked bool                         `json:"scrollLocked"`
	Dark         bool                         `json:"dark"`
}

// Snapshot copies the document state.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Snapshot{
		Markup:       make(map[string]string, len(d.markup)),
		Hidden:       make(map[string]bool, len(d.hidden)),
		Attrs:        make(map[string]map[string]string, len(d.attrs)),
		Values:       make(map[string]string, len(d.values)),
		Focused:      d.focused,
		ScrollLocked: d.scrollLocked,
		Dark:         d.dark,
	}
	for k, v := range d.markup {
		s.Markup[k] = v
	}
	for k, v := range d.hidden {
		s.Hidden[k] = v
	}
	for k, m := range d.attrs {
		cp := make(map[string]string, len(m))
		for n, v := range m {
			cp[n] = v
		}
		s.Attrs[k] = cp
	}
	for k, v := range d.values {
		s.Values[k] = v
	}
	return s
}
