// Path: internal/service/storage.go
package service

import (
	"context"
	"log/slog"
	"strconv"

	"recipe-finder/internal/domain"
	"recipe-finder/internal/page"
)

// DarkModeKey is the preferences key holding "true" or "false".
const DarkModeKey = "dark-mode"

// RecipeFetcher is what the client needs from the proxy: recipe lists and
// single recipe details.
type RecipeFetcher interface {
	List(ctx context.Context, d domain.Descriptor) ([]domain.RecipeSummary, error)
	FetchDetail(ctx context.Context, id int) (*domain.RecipeDetail, error)
}

// loadDarkMode reads the persisted theme. Anything but "true" is light mode.
func loadDarkMode(ctx context.Context, kv domain.KeyValueStore, log *slog.Logger) bool {
	raw, found, err := kv.Get(ctx, DarkModeKey)
	if err != nil {
		log.Warn("preferences: could not read dark mode, using light", "error", err)
		return false
	}
	if !found {
		return false
	}
	dark, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn("preferences: malformed dark mode value, using light", "value", raw)
		return false
	}
	return dark
}

func saveDarkMode(ctx context.Context, kv domain.KeyValueStore, dark bool) error {
	return kv.Set(ctx, DarkModeKey, strconv.FormatBool(dark))
}

// applyDarkMode sets the theme and the toggle's icon and label.
func applyDarkMode(doc *page.Document, dark bool) {
	doc.SetDark(dark)
	if dark {
		doc.SetText(page.DarkToggle, "☀️")
		doc.SetAttr(page.DarkToggle, "aria-label", "Switch to light mode")
		return
	}
	doc.SetText(page.DarkToggle, "🌙")
	doc.SetAttr(page.DarkToggle, "aria-label", "Switch to dark mode")
}
