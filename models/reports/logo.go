package reports

import (
	"bytes"
	"errors"

	"github.com/disintegration/imaging"
)

// maxLogoBytes bounds stored logo uploads and downloads.
const maxLogoBytes int64 = 5 << 20

const logoMaxEdge = 256

// MaxLogoBytes is the largest logo accepted for upload.
func MaxLogoBytes() int64 { return maxLogoBytes }

// NormalizeLogo decodes an uploaded image, honours its EXIF orientation,
// shrinks it to fit logoMaxEdge and re-encodes it as PNG.
func NormalizeLogo(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("logo is empty")
	}
	if int64(len(data)) > maxLogoBytes {
		return nil, errors.New("logo exceeds 5MB limit")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() > logoMaxEdge || b.Dy() > logoMaxEdge {
		img = imaging.Fit(img, logoMaxEdge, logoMaxEdge, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
