// Path: internal/domain/descriptor.go
package domain

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// DefaultPageSize is used when a search names no page size.
const DefaultPageSize = 12

// Filters narrows a search. Empty fields are not applied.
type Filters struct {
	Cuisine      string `json:"cuisine"`
	Diet         string `json:"diet"`
	Intolerances string `json:"intolerances"`
	MealType     string `json:"type"`
}

// Descriptor describes one search request and is the result cache key.
type Descriptor struct {
	Text     string  `json:"text"`
	PageSize int     `json:"pageSize"`
	Filters  Filters `json:"filters"`
}

// Normalize fills defaults: a missing page size becomes DefaultPageSize.
func (d Descriptor) Normalize() Descriptor {
	if d.PageSize <= 0 {
		d.PageSize = DefaultPageSize
	}
	return d
}

// Key is the canonical serialization of the normalized descriptor. Field order is
// fixed by the struct layout, so equal descriptors always produce equal keys.
func (d Descriptor) Key() string {
	b, err := json.Marshal(d.Normalize())
	if err != nil {
		// Only strings and ints; cannot fail.
		panic(err)
	}
	return string(b)
}

// Encode renders the proxy query string: q and number always, filters when set.
func (d Descriptor) Encode() string {
	d = d.Normalize()
	q := url.Values{}
	q.Set("q", d.Text)
	q.Set("number", strconv.Itoa(d.PageSize))
	if d.Filters.Cuisine != "" {
		q.Set("cuisine", d.Filters.Cuisine)
	}
	if d.Filters.Diet != "" {
		q.Set("diet", d.Filters.Diet)
	}
	if d.Filters.Intolerances != "" {
		q.Set("intolerances", d.Filters.Intolerances)
	}
	if d.Filters.MealType != "" {
		q.Set("type", d.Filters.MealType)
	}
	return q.Encode()
}
