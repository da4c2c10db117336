package syncer

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	// Content sniffing needs the decoders registered.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Avatars larger than this get scaled down on storage.
const maxAvatarSide = 512

// isPlaceholder reports whether the photo reference is the directory's
// stand-in image rather than a real member photo.
func isPlaceholder(photo string) bool {
	if photo == "" {
		return true
	}

	lower := strings.ToLower(photo)

	return strings.Contains(lower, "platzhalter") || strings.Contains(lower, "placeholder")
}

// decodeImage sniffs and decodes the downloaded bytes as jpeg, png,
// gif or webp.
func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a supported image: %w", err)
	}

	return img, nil
}

// normalizeAvatar center-crops the image to a square and scales it to
// at most maxAvatarSide pixels.
func normalizeAvatar(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	side := width
	if height < side {
		side = height
	}

	if side <= 0 {
		return img
	}

	crop := image.Rectangle{
		Min: image.Point{
			X: bounds.Min.X + (width-side)/2,
			Y: bounds.Min.Y + (height-side)/2,
		},
	}
	crop.Max = crop.Min.Add(image.Pt(side, side))

	out := side
	if out > maxAvatarSide {
		out = maxAvatarSide
	}

	if out == side && crop == bounds {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, out, out))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)

	return dst
}
