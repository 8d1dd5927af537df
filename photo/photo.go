// Package photo turns uploaded image files into the data URIs embedded in
// pessoa records.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

const DefaultMaxBytes = 5 * 1024 * 1024

var (
	ErrNotImage = errors.New("photo is not an image")
	ErrTooLarge = errors.New("photo is too large")
	ErrEmpty    = errors.New("photo is empty")
)

type Reader struct {
	MaxBytes int64 // upload limit, DefaultMaxBytes when zero
	MaxSide  int   // longest side in pixels after downscaling, 0 keeps the original
}

// Read consumes r and returns the image as a base64 data URI.
func (p *Reader) Read(r io.Reader) (string, error) {
	limit := p.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mime.String())
	}

	contentType := mime.String()
	if p.MaxSide > 0 {
		data, contentType, err = p.shrink(data, mime)
		if err != nil {
			return "", err
		}
	}

	return DataURI(contentType, data), nil
}

func (p *Reader) shrink(data []byte, mime *mimetype.MIME) ([]byte, string, error) {
	format, err := imaging.FormatFromExtension(mime.Extension())
	if err != nil {
		// formats imaging cannot encode are stored untouched
		return data, mime.String(), nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode photo: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= p.MaxSide && bounds.Dy() <= p.MaxSide {
		return data, mime.String(), nil
	}

	resized := imaging.Fit(img, p.MaxSide, p.MaxSide, imaging.Lanczos)

	b := new(bytes.Buffer)
	if err := imaging.Encode(b, resized, format, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("encode photo: %w", err)
	}

	return b.Bytes(), mime.String(), nil
}

func DataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
