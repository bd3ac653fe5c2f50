package cache

import (
	"testing"

	"recipe-finder/internal/domain"
)

func TestGetPut(t *testing.T) {
	c := NewResults()
	d := domain.Descriptor{Text: "soup"}

	if _, ok := c.Get(d); ok {
		t.Fatal("expected miss on empty cache")
	}

	results := []domain.RecipeSummary{{ID: 1, Title: "Tomato Soup"}}
	c.Put(d, results)
	results[0].Title = "mutated"

	got, ok := c.Get(domain.Descriptor{Text: "soup", PageSize: 12})
	if !ok {
		t.Fatal("expected hit for canonically equal descriptor")
	}
	if got[0].Title != "Tomato Soup" {
		t.Fatalf("cache must keep its own copy, got %q", got[0].Title)
	}

	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Fatalf("unexpected stats hits=%d misses=%d", hits, misses)
	}
}

func TestEmptyResultsAreCached(t *testing.T) {
	c := NewResults()
	d := domain.Descriptor{Text: "zzzqqqnonexistent"}
	c.Put(d, nil)
	got, ok := c.Get(d)
	if !ok || len(got) != 0 {
		t.Fatalf("expected cached empty result, got ok=%v len=%d", ok, len(got))
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}
