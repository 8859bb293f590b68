package crawler

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultExtension is used when a link carries no recognised image extension
const DefaultExtension = "jpg"

var imageExtensions = map[string]bool{
	"jpe":  true,
	"jpeg": true,
	"jfif": true,
	"exif": true,
	"tiff": true,
	"gif":  true,
	"bmp":  true,
	"png":  true,
	"webp": true,
	"jpg":  true,
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	separators    = strings.NewReplacer("/", "_", "\\", "_")
)

// Extension derives the lowercased file extension of link from its path
// basename, ignoring any query string.
func Extension(link string) string {
	p := link
	if u, err := url.Parse(link); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	base := path.Base(p)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[i+1:]
	}
	ext := strings.ToLower(base)
	if imageExtensions[ext] {
		return ext
	}
	return DefaultExtension
}

// Filename builds "<query>_Image_<n>.<ext>" with whitespace runs in query
// collapsed to a single underscore. Path separators are replaced too.
func Filename(query string, n int, ext string) string {
	name := whitespaceRun.ReplaceAllString(strings.TrimSpace(query), "_")
	name = separators.Replace(name)
	return fmt.Sprintf("%s_Image_%d.%s", name, n, ext)
}
