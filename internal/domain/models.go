// Path: internal/domain/models.go
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Placeholder images served by the API when a recipe has no picture.
const (
	CardPlaceholder   = "/api/placeholder/300/200"
	DetailPlaceholder = "/api/placeholder/400/300"
)

// --- Custom Type for recipe identifiers ---

// FlexibleInt is an integer that can be unmarshaled from a JSON number
// or a JSON string holding a number ("716429").
type FlexibleInt int

// UnmarshalJSON implements the json.Unmarshaler interface for FlexibleInt.
func (fi *FlexibleInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*fi = FlexibleInt(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id is not a recognizable number or string")
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*fi = FlexibleInt(parsed)
	return nil
}

// RecipeSummary is a search result entry from the upstream provider.
type RecipeSummary struct {
	ID    FlexibleInt `json:"id"`
	Title string      `json:"title"`
	Image string      `json:"image,omitempty"`
}

// SearchResponse is the complex-search shaped envelope returned for list queries.
type SearchResponse struct {
	Results      []RecipeSummary `json:"results"`
	TotalResults int             `json:"totalResults,omitempty"`
}

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Original string `json:"original"`
}

// InstructionStep is one numbered step of an analyzed instruction block.
type InstructionStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

// InstructionBlock groups steps; most recipes have exactly one unnamed block.
type InstructionBlock struct {
	Name  string            `json:"name"`
	Steps []InstructionStep `json:"steps"`
}

// RecipeDetail is the flat single-recipe information object.
// Optional numeric fields are pointers so "absent" and "zero" stay distinct on the wire.
type RecipeDetail struct {
	ID                   FlexibleInt        `json:"id"`
	Title                string             `json:"title"`
	Image                string             `json:"image,omitempty"`
	Servings             *int               `json:"servings,omitempty"`
	ReadyInMinutes       *int               `json:"readyInMinutes,omitempty"`
	SourceURL            string             `json:"sourceUrl,omitempty"`
	ExtendedIngredients  []Ingredient       `json:"extendedIngredients"`
	AnalyzedInstructions []InstructionBlock `json:"analyzedInstructions"`
	Summary              string             `json:"summary,omitempty"`
}

// AsSummary projects a detail down to the fields a result card needs.
func (d RecipeDetail) AsSummary() RecipeSummary {
	return RecipeSummary{ID: d.ID, Title: d.Title, Image: d.Image}
}

// InstructionSteps returns the steps of the first analyzed block, renumbered from 1.
// Empty steps are dropped.
func (d RecipeDetail) InstructionSteps() []InstructionStep {
	if len(d.AnalyzedInstructions) == 0 {
		return nil
	}
	var out []InstructionStep
	for _, s := range d.AnalyzedInstructions[0].Steps {
		if strings.TrimSpace(s.Step) == "" {
			continue
		}
		out = append(out, InstructionStep{Number: len(out) + 1, Step: s.Step})
	}
	return out
}

// ServingsLabel renders servings, "-" when absent or zero.
func (d RecipeDetail) ServingsLabel() string {
	if d.Servings == nil || *d.Servings <= 0 {
		return "-"
	}
	return strconv.Itoa(*d.Servings)
}

// ReadyLabel renders the ready time, "-" when absent or zero.
func (d RecipeDetail) ReadyLabel() string {
	if d.ReadyInMinutes == nil || *d.ReadyInMinutes <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d min", *d.ReadyInMinutes)
}

// TitleOr returns the title or the fallback when the title is blank.
func TitleOr(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}

// ImageOr returns the image URL or the given placeholder.
func ImageOr(image, placeholder string) string {
	if strings.TrimSpace(image) == "" {
		return placeholder
	}
	return image
}

// ContactMessage is the payload accepted by the demo contact endpoint.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}
