package bing

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the search engine origin
	BaseURL = "https://www.bing.com"

	// AsyncEndpoint serves result pages as HTML fragments
	AsyncEndpoint = "/images/async"
)

var filterTokens = map[string]string{
	"line":        "+filterui:photo-linedrawing",
	"linedrawing": "+filterui:photo-linedrawing",
	"photo":       "+filterui:photo-photo",
	"clipart":     "+filterui:photo-clipart",
	"gif":         "+filterui:photo-animatedgif",
	"animatedgif": "+filterui:photo-animatedgif",
	"transparent": "+filterui:photo-transparent",
}

// BuildFilter translates a filter shorthand and an optional "<w>_<h>" size
// into the qft parameter value. Unknown shorthands contribute nothing.
func BuildFilter(shorthand, size string) string {
	filter := filterTokens[strings.ToLower(strings.TrimSpace(shorthand))]
	if size != "" {
		filter += "+filterui:imagesize-custom_" + size
	}
	return filter
}

// PageRequest identifies one result page
type PageRequest struct {
	Query  string
	Page   int
	Limit  int
	Adult  string // "on" or "off"
	Filter string // pre-built qft value, see BuildFilter
}

// PageURL builds the result page URL for req against base. The filter is
// appended verbatim, its '+' separators are part of the engine's syntax.
func PageURL(base string, req PageRequest) string {
	return fmt.Sprintf("%s%s?q=%s&first=%d&count=%d&adlt=%s&qft=%s",
		strings.TrimRight(base, "/"), AsyncEndpoint,
		url.QueryEscape(req.Query), req.Page, req.Limit, req.Adult, req.Filter)
}
