// Package images provides the cover-thumbnail resampling the MOBI writer
// needs: every Kindle-format cover ships with a small companion thumbnail
// record immediately after the full-size cover image.
package images

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// MaxThumbDimen is the longest edge a generated thumbnail may have.
const MaxThumbDimen = 330

// Thumbnail decodes a cover image and returns a JPEG-encoded thumbnail no
// larger than MaxThumbDimen on its longest edge, preserving aspect ratio.
// A decode failure returns the original bytes unchanged rather than
// failing the whole conversion — a missing thumbnail is cosmetic.
func Thumbnail(cover []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(cover))
	if err != nil {
		return cover
	}

	resized := imaging.Fit(img, MaxThumbDimen, MaxThumbDimen, imaging.Lanczos)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, resized, &jpeg.Options{Quality: 85}); err != nil {
		return cover
	}
	return out.Bytes()
}
