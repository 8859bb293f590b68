package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"imgcrawl/pkg/crawler"
)

// ManifestFile is the name of the per-query summary written next to the images
const ManifestFile = "manifest.json"

// Manifest summarises one query of a crawl run
type Manifest struct {
	RunID       string    `json:"run_id"`
	Query       string    `json:"query"`
	GeneratedAt time.Time `json:"generated_at"`

	Downloaded int            `json:"downloaded"`
	Pages      int            `json:"pages"`
	Exhausted  bool           `json:"exhausted"`
	Failures   map[string]int `json:"failures,omitempty"`
	DurationMS int64          `json:"duration_ms"`

	Images []ImageMetadata `json:"images"`
}

// ImageMetadata describes one saved image
type ImageMetadata struct {
	File     string `json:"file"`
	Link     string `json:"link"`
	Digest   string `json:"digest"`
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int64  `json:"file_size"`
	Strategy string `json:"strategy"`
}

// FromResult converts a finished query into a manifest
func FromResult(runID string, res *crawler.Result) *Manifest {
	m := &Manifest{
		RunID:       runID,
		Query:       res.Query,
		GeneratedAt: time.Now().UTC(),
		Downloaded:  res.Downloaded,
		Pages:       res.Pages,
		Exhausted:   res.Exhausted,
		DurationMS:  res.Duration.Milliseconds(),
		Images:      make([]ImageMetadata, 0, len(res.Files)),
	}

	if len(res.Failures) > 0 {
		m.Failures = make(map[string]int, len(res.Failures))
		for t, n := range res.Failures {
			m.Failures[string(t)] = n
		}
	}

	for _, f := range res.Files {
		img := ImageMetadata{
			File:     filepath.Base(f.Path),
			Link:     f.Link,
			Strategy: string(f.Strategy),
		}
		if f.Info != nil {
			img.Digest = f.Info.Digest.String()
			img.Format = f.Info.Format
			img.Width = f.Info.Width
			img.Height = f.Info.Height
			img.FileSize = f.Info.Size
		}
		m.Images = append(m.Images, img)
	}
	sort.SliceStable(m.Images, func(i, j int) bool {
		return m.Images[i].File < m.Images[j].File
	})

	return m
}

// GetAspectRatio returns the aspect ratio as a string
func (m *ImageMetadata) GetAspectRatio() string {
	if m.Height == 0 {
		return "unknown"
	}

	ratio := float64(m.Width) / float64(m.Height)

	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.9 && ratio < 1.1:
		return "1:1"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	case ratio > 0.74 && ratio < 0.76:
		return "3:4"
	default:
		return fmt.Sprintf("%.2f:1", ratio)
	}
}

// JSONSaver persists a value as JSON at path
type JSONSaver interface {
	SaveJSON(v interface{}, path string) error
}

// Writer records a manifest into each query directory
type Writer struct {
	store JSONSaver
}

// NewWriter creates a manifest writer backed by store
func NewWriter(store JSONSaver) *Writer {
	return &Writer{store: store}
}

// Record writes the manifest for res into res.Dir
func (w *Writer) Record(runID string, res *crawler.Result) error {
	if res.Dir == "" {
		return fmt.Errorf("no output directory for query %q", res.Query)
	}
	return w.store.SaveJSON(FromResult(runID, res), filepath.Join(res.Dir, ManifestFile))
}

// Load reads the manifest stored in dir
func Load(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Exists reports whether dir already holds a manifest
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ManifestFile))
	return err == nil
}
