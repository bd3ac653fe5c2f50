// Package render projects recipes into HTML fragments. All interpolated upstream
// text goes through html/template, so titles, ingredients and steps are escaped.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"recipe-finder/internal/domain"
)

//go:embed templates/*.html
var tmplFS embed.FS

// Static fragments.
const (
	// CloseButton is the dialog's close control; it sits before the dialog body.
	CloseButton  = `<button type="button" class="modal-close" id="modal-close" aria-label="Close dialog">&times;</button>`
	NoFavorites  = `<div class="no-favorites"><p>No favorites yet! Heart some recipes to see them here.</p></div>`
	FeaturedFail = `<p class="error-message">Unable to load featured recipes.</p>`
)

type badge struct {
	ID    int
	On    bool
	Modal bool
}

type cardView struct {
	ID    int
	Title string
	Image string
	Badge badge
}

type detailView struct {
	Title       string
	Image       string
	Badge       badge
	Servings    string
	Ready       string
	SourceURL   string
	Ingredients []string
	Steps       []domain.InstructionStep
	Summary     string
}

// Renderer renders card lists and recipe details.
type Renderer struct {
	tpl *template.Template
}

// New parses the embedded templates.
func New() *Renderer {
	return &Renderer{tpl: template.Must(template.ParseFS(tmplFS, "templates/*.html"))}
}

// Summaries renders one card per summary. isFavorite decides each card's badge.
func (r *Renderer) Summaries(list []domain.RecipeSummary, isFavorite func(id int) bool) (string, error) {
	views := make([]cardView, 0, len(list))
	for _, s := range list {
		id := int(s.ID)
		views = append(views, cardView{
			ID:    id,
			Title: domain.TitleOr(s.Title, "Untitled"),
			Image: domain.ImageOr(s.Image, domain.CardPlaceholder),
			Badge: badge{ID: id, On: isFavorite(id)},
		})
	}
	return r.execute("cards", views)
}

// Detail renders the dialog body for one recipe.
func (r *Renderer) Detail(d domain.RecipeDetail, favorite bool) (string, error) {
	v := detailView{
		Title:     domain.TitleOr(d.Title, "Recipe"),
		Image:     domain.ImageOr(d.Image, domain.DetailPlaceholder),
		Badge:     badge{ID: int(d.ID), On: favorite, Modal: true},
		Servings:  d.ServingsLabel(),
		Ready:     d.ReadyLabel(),
		SourceURL: strings.TrimSpace(d.SourceURL),
		Steps:     d.InstructionSteps(),
	}
	for _, ing := range d.ExtendedIngredients {
		if strings.TrimSpace(ing.Original) != "" {
			v.Ingredients = append(v.Ingredients, ing.Original)
		}
	}
	if len(v.Steps) == 0 {
		v.Summary = PlainText(d.Summary)
	}
	return r.execute("detail", v)
}

// ModalLoading is the dialog body while a detail fetch is in flight.
func (r *Renderer) ModalLoading() string {
	out, _ := r.execute("modal-loading", nil)
	return out
}

// ModalError is the dialog body after a failed detail fetch, with a retry action.
func (r *Renderer) ModalError(id int, message string) string {
	out, err := r.execute("modal-error", struct {
		ID      int
		Message string
	}{id, message})
	if err != nil {
		return "<p>Error loading recipe.</p>"
	}
	return out
}

// SearchError is the inline error with a retry action for the result container.
func (r *Renderer) SearchError(message string) string {
	out, err := r.execute("search-error", message)
	if err != nil {
		return "<p>Search failed.</p>"
	}
	return out
}

// FavoritesError is shown when the favorites view cannot be built at all.
func FavoritesError(message string) string {
	return `<div class="error-state"><p>Error loading favorites: ` + template.HTMLEscapeString(message) + `</p></div>`
}

// NoResultsMessage is the plain-text copy for an empty search.
func NoResultsMessage(query string) string {
	if query == "" {
		return "No recipes found. Try searching for something delicious!"
	}
	return `No recipes found for "` + query + `". Try "pasta" or "chicken"!`
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
