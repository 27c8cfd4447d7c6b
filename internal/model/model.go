package model

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultScrollBudget is the number of scroll passes applied per
// locality when the request does not specify one.
const DefaultScrollBudget = 5

// ErrInvalidRequest marks a request that is missing required search
// parameters. It is surfaced before any browser session is opened.
var ErrInvalidRequest = errors.New("missing required search parameters")

// SearchRequest describes one scrape: a business category searched
// across a set of localities within a region.
type SearchRequest struct {
	Category     string   `json:"category"`
	Region       string   `json:"region"`
	Targets      []string `json:"targets"`
	ExtraTerms   string   `json:"extraTerms,omitempty"`
	ScrollBudget int      `json:"scrollBudget,omitempty"`
}

// Validate reports whether the request carries everything a scrape
// needs. Wrapped errors all match ErrInvalidRequest.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Region) == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidRequest)
	}
	if len(r.Targets) == 0 {
		return fmt.Errorf("%w: at least one target locality is required", ErrInvalidRequest)
	}
	return nil
}

// Budget returns the effective scroll budget.
func (r SearchRequest) Budget() int {
	if r.ScrollBudget > 0 {
		return r.ScrollBudget
	}
	return DefaultScrollBudget
}

// Queries derives one search string per target locality, in target
// order: category, locality, region and any extra terms joined by
// spaces.
func (r SearchRequest) Queries() []string {
	queries := make([]string, 0, len(r.Targets))
	for _, target := range r.Targets {
		terms := []string{r.Category, target, r.Region}
		if r.ExtraTerms != "" {
			terms = append(terms, r.ExtraTerms)
		}
		queries = append(queries, strings.Join(terms, " "))
	}
	return queries
}

// Coordinates is a latitude/longitude pair recovered from the detail
// panel's directions link. Values are kept as the strings found in the
// URL; a record either has both or neither.
type Coordinates struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// BusinessRecord is one extracted business. Rating and review counts
// stay string-typed to preserve the formatting shown on the page.
type BusinessRecord struct {
	Title          string       `json:"title"`
	Rating         string       `json:"rating,omitempty"`
	ReviewCount    string       `json:"reviews,omitempty"`
	Category       string       `json:"type,omitempty"`
	Address        string       `json:"address,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Website        string       `json:"website,omitempty"`
	Hours          string       `json:"openState,omitempty"`
	Description    string       `json:"description,omitempty"`
	ServiceOptions string       `json:"serviceOptions,omitempty"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
	ThumbnailURL   string       `json:"thumbnail,omitempty"`
	SourceQuery    string       `json:"searchQuery,omitempty"`
}
