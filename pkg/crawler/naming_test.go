package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		link     string
		expected string
	}{
		{"https://a.com/x/photo.png", "png"},
		{"https://a.com/photo.JPEG", "jpeg"},
		{"https://a.com/photo.webp?w=200&h=100", "webp"},
		{"https://a.com/photo.gif#frag", "gif"},
		{"https://a.com/archive.tar.tiff", "tiff"},
		{"https://a.com/photo.jfif", "jfif"},
		{"https://a.com/photo.xyz", "jpg"},
		{"https://a.com/photo", "jpg"},
		{"https://a.com/", "jpg"},
		{"https://a.com/png", "png"},
		{"https://a.com/image.php?file=cat.png", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.expected, Extension(tt.link))
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		query    string
		n        int
		ext      string
		expected string
	}{
		{"cat", 1, "jpg", "cat_Image_1.jpg"},
		{"red  panda", 12, "png", "red_panda_Image_12.png"},
		{" tabby\tcat ", 3, "gif", "tabby_cat_Image_3.gif"},
		{"ac/dc", 2, "jpg", "ac_dc_Image_2.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Filename(tt.query, tt.n, tt.ext))
		})
	}
}
