// Package validator checks that a downloaded file really is an image and
// fingerprints its content.
package validator

import (
	"bufio"
	"crypto/md5"
	"fmt"
	"image"
	"io"
	"os"

	// registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"imgcrawl/pkg/dedup"
	errs "imgcrawl/pkg/errors"
)

// Info describes a validated image file
type Info struct {
	Format string
	Width  int
	Height int
	Size   int64
	Digest dedup.Digest
}

// Validate opens path, confirms a registered decoder recognises it and
// computes its digest. The file handle is closed before returning on every
// path. Any failure is an ErrorTypeValidation error.
func Validate(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, "cannot open downloaded file", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, "cannot stat downloaded file", err)
	}
	if st.Size() == 0 {
		return nil, errs.New(errs.ErrorTypeValidation, "downloaded file is empty")
	}

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, "not a decodable image", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, "cannot rewind downloaded file", err)
	}
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, "cannot read downloaded file", err)
	}

	info := &Info{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   st.Size(),
	}
	copy(info.Digest[:], h.Sum(nil))
	return info, nil
}

func (i *Info) String() string {
	return fmt.Sprintf("%s %dx%d %dB", i.Format, i.Width, i.Height, i.Size)
}
