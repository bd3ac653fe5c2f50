package render

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"recipe-finder/internal/page"
)

func badgeSelector(id int) string {
	return fmt.Sprintf(`.favorite-btn[data-id="%d"]`, id)
}

func badgeCopy(favorite bool) (label, text string) {
	if favorite {
		return "Remove from favorites", "❤️"
	}
	return "Add to favorites", "🤍"
}

// PatchFavoriteBadges flips every favorite toggle for id inside fragment without
// re-rendering anything else. It reports whether any badge was found.
func PatchFavoriteBadges(fragment string, id int, favorite bool) (string, bool) {
	if !strings.Contains(fragment, "favorite-btn") {
		return fragment, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment, false
	}

	badges := doc.Find(badgeSelector(id))
	if badges.Length() == 0 {
		return fragment, false
	}
	label, text := badgeCopy(favorite)
	badges.Each(func(_ int, b *goquery.Selection) {
		if favorite {
			b.AddClass("favorited")
		} else {
			b.RemoveClass("favorited")
		}
		b.SetAttr("aria-label", label)
		b.SetText(text)
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment, false
	}
	return out, true
}

// FavoriteBadgeDeltas are the browser-side edits matching PatchFavoriteBadges.
// They address the badges by selector, leaving the rest of each card alone.
func FavoriteBadgeDeltas(id int, favorite bool) []page.Patch {
	sel := badgeSelector(id)
	label, text := badgeCopy(favorite)
	on := ""
	if favorite {
		on = "true"
	}
	return []page.Patch{
		{Kind: page.PatchClass, Selector: sel, Name: "favorited", Value: on},
		{Kind: page.PatchAttr, Selector: sel, Name: "aria-label", Value: label},
		{Kind: page.PatchText, Selector: sel, Value: text},
	}
}

// PlainText strips markup from an upstream HTML snippet and collapses whitespace.
func PlainText(snippet string) string {
	if strings.TrimSpace(snippet) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snippet))
	if err != nil {
		return strings.Join(strings.Fields(snippet), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
