package page

import (
	"testing"

	"recipe-finder/internal/events"
)

func TestDefaults(t *testing.T) {
	d := New(nil)
	for _, id := range []string{Loading, NoResults, ErrorState} {
		if !d.Hidden(id) {
			t.Fatalf("expected %s hidden by default", id)
		}
	}
	if d.Attr(Modal, "aria-hidden") != "true" {
		t.Fatal("expected dialog closed")
	}
	if d.Value(PerPage) != "12" {
		t.Fatalf("unexpected page size %q", d.Value(PerPage))
	}
}

func TestSetTextEscapes(t *testing.T) {
	d := New(nil)
	d.SetText(NoResultsText, `No recipes found for "<b>".`)
	if got := d.HTML(NoResultsText); got != "No recipes found for &#34;&lt;b&gt;&#34;." {
		t.Fatalf("unexpected markup %q", got)
	}
}

func TestMutationsArePublished(t *testing.T) {
	b := events.NewBroker()
	sub := b.Subscribe(events.TopicPatch)
	d := New(b)

	d.Show(Loading)
	d.LockScroll(true)
	d.Rewrite(func(id, markup string) (string, bool) { return "", false })

	first := (<-sub).Data.(Patch)
	if first.Kind != PatchHidden || first.ID != Loading || first.Hidden {
		t.Fatalf("unexpected patch %+v", first)
	}
	second := (<-sub).Data.(Patch)
	if second.Kind != PatchScroll || !second.Locked {
		t.Fatalf("unexpected patch %+v", second)
	}
	select {
	case p := <-sub:
		t.Fatalf("unchanged rewrite must not publish, got %+v", p)
	default:
	}
}

func TestRewriteOnlyStoresChangedRegions(t *testing.T) {
	d := New(nil)
	d.SetHTML(Recipes, "a")
	d.SetHTML(ModalBody, "b")
	d.Rewrite(func(id, markup string) (string, bool) {
		if id == ModalBody {
			return "B", true
		}
		return "ignored", false
	})
	if d.HTML(Recipes) != "a" || d.HTML(ModalBody) != "B" {
		t.Fatalf("unexpected markup %q %q", d.HTML(Recipes), d.HTML(ModalBody))
	}
}

func TestRewritePublishesDeltasInsteadOfRegions(t *testing.T) {
	b := events.NewBroker()
	d := New(b)
	d.SetHTML(Recipes, "a")
	d.SetHTML(Featured, "b")
	sub := b.Subscribe(events.TopicPatch)

	delta := Patch{Kind: PatchText, Selector: ".badge", Value: "x"}
	d.Rewrite(func(id, markup string) (string, bool) { return markup + "!", true }, delta)

	if got := (<-sub).Data.(Patch); got != delta {
		t.Fatalf("expected the delta, got %+v", got)
	}
	select {
	case p := <-sub:
		t.Fatalf("expected a single delta, got %+v", p)
	default:
	}
	if d.HTML(Recipes) != "a!" || d.HTML(Featured) != "b!" {
		t.Fatal("regions must still be stored")
	}

	d.Rewrite(func(id, markup string) (string, bool) { return markup, false }, delta)
	select {
	case p := <-sub:
		t.Fatalf("unchanged rewrite must not publish deltas, got %+v", p)
	default:
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	d := New(nil)
	d.SetAttr(FavoritesToggle, "class", "active")
	s := d.Snapshot()
	s.Attrs[FavoritesToggle]["class"] = ""
	if d.Attr(FavoritesToggle, "class") != "active" {
		t.Fatal("snapshot must not alias document state")
	}
}
