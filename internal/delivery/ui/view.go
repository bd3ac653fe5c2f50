package ui

import (
	"html/template"

	"recipe-finder/internal/page"
)

// option is one entry of a filter select.
type option struct {
	Value string
	Label string
}

var filterOptions = map[string][]option{
	page.Cuisine: {
		{"", "All cuisines"}, {"italian", "Italian"}, {"mexican", "Mexican"}, {"indian", "Indian"},
		{"chinese", "Chinese"}, {"thai", "Thai"}, {"french", "French"}, {"mediterranean", "Mediterranean"},
	},
	page.Diet: {
		{"", "Any diet"}, {"vegetarian", "Vegetarian"}, {"vegan", "Vegan"}, {"gluten free", "Gluten free"},
		{"ketogenic", "Ketogenic"}, {"paleo", "Paleo"},
	},
	page.Intolerances: {
		{"", "No intolerances"}, {"dairy", "Dairy"}, {"gluten", "Gluten"}, {"peanut", "Peanut"},
		{"egg", "Egg"}, {"shellfish", "Shellfish"},
	},
	page.MealType: {
		{"", "Any meal"}, {"main course", "Main course"}, {"breakfast", "Breakfast"}, {"dessert", "Dessert"},
		{"salad", "Salad"}, {"soup", "Soup"}, {"appetizer", "Appetizer"},
	},
}

var pageSizes = []string{"6", "12", "24", "48"}

// indexView exposes a document snapshot and its page token to the template.
type indexView struct {
	snap    page.Snapshot
	session string
}

// HTML returns a region's markup. Regions only ever hold rendered, escaped
// fragments.
func (v indexView) HTML(id string) template.HTML {
	return template.HTML(v.snap.Markup[id])
}

func (v indexView) Session() string { return v.session }
func (v indexView) Hidden(id string) bool { return v.snap.Hidden[id] }
func (v indexView) Attr(id, name string) string { return v.snap.Attrs[id][name] }
func (v indexView) Value(id string) string { return v.snap.Values[id] }
func (v indexView) Dark() bool { return v.snap.Dark }
func (v indexView) ScrollLocked() bool { return v.snap.ScrollLocked }
func (v indexView) Options(id string) []option { return filterOptions[id] }
func (v indexView) PageSizes() []string { return pageSizes }
func (v indexView) Filters() []string { return page.FilterControls }
func (v indexView) Selected(id, val string) bool { return v.snap.Values[id] == val }
