package media

import (
	"bytes"
	"fmt"
	"image"
	"math"

	// Registered decoders for downloaded images.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// decimationFactor is round(srcWidth / reqWidth) when the source is wider
// than requested, otherwise 1.
func decimationFactor(srcWidth, reqWidth int) int {
	if reqWidth <= 0 || srcWidth <= reqWidth {
		return 1
	}
	f := int(math.Round(float64(srcWidth) / float64(reqWidth)))
	if f < 1 {
		return 1
	}
	return f
}

// Process decodes data and fits it to the requested size. With width and
// height both set, a non-square image shown in a square target is centre
// cropped first, and the result is scaled to exactly width x height.
func Process(data []byte, width, height int) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img := src
	if f := decimationFactor(cfg.Width, width); f > 1 {
		img = decimate(img, f)
	}

	if width > 0 && height > 0 {
		b := img.Bounds()
		if width == height && b.Dx() != b.Dy() {
			img = centerSquare(img)
		}
		img = scale(img, width, height)
	}
	return img, nil
}

// decimate shrinks img by factor using nearest-neighbour sampling.
func decimate(img image.Image, factor int) image.Image {
	b := img.Bounds()
	w := max(b.Dx()/factor, 1)
	h := max(b.Dy()/factor, 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// centerSquare cuts the largest centred square out of img.
func centerSquare(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var r image.Rectangle
	if w >= h {
		x0 := b.Min.X + w/2 - h/2
		r = image.Rect(x0, b.Min.Y, x0+h, b.Min.Y+h)
	} else {
		y0 := b.Min.Y + h/2 - w/2
		r = image.Rect(b.Min.X, y0, b.Min.X+w, y0+w)
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// scale resizes img to exactly width x height with bilinear filtering.
func scale(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
