package school

import (
	"bytes"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	photoMaxSide = 512
	photoQuality = 85
)

// ErrInvalidPhoto is returned when an achievement photo cannot be decoded.
var ErrInvalidPhoto = errors.New("photo must be a valid JPEG, PNG, GIF, BMP or TIFF image")

// NormalizePhoto decodes an uploaded image, fits it into a 512x512 box and re-encodes it as JPEG.
func NormalizePhoto(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrInvalidPhoto
	}
	b := img.Bounds()
	if b.Dx() > photoMaxSide || b.Dy() > photoMaxSide {
		img = imaging.Fit(img, photoMaxSide, photoMaxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(photoQuality)); err != nil {
		return nil, errors.Wrap(err, "encoding photo")
	}
	return buf.Bytes(), nil
}
