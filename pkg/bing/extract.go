package bing

import (
	"iter"
	"regexp"
)

// linkPattern captures the full-size image URL from a result's HTML-escaped
// metadata attribute.
var linkPattern = regexp.MustCompile(`murl&quot;:&quot;(.*?)&quot;`)

// ExtractLinks yields image URLs in page order. A body without any match
// yields nothing; whether that means "no results" or "markup changed" is
// for the caller to decide.
func ExtractLinks(body string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, m := range linkPattern.FindAllStringSubmatchIndex(body, -1) {
			if !yield(body[m[2]:m[3]]) {
				return
			}
		}
	}
}
