// Package imageprep shrinks page photos before they are sent for
// recognition.
package imageprep

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

// Downscale re-encodes data as JPEG with its longer edge at most maxEdge.
// Images already within the bound are returned unchanged with resized=false.
func Downscale(data []byte, maxEdge int) (out []byte, resized bool, err error) {
	if maxEdge <= 0 {
		return data, false, nil
	}

	img, err := decodeImage(data)
	if err != nil {
		return data, false, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return data, false, nil
	}

	nw, nh := fit(w, h, maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return data, false, fmt.Errorf("encode jpeg failed: %w", err)
	}
	return buf.Bytes(), true, nil
}

func fit(w, h, maxEdge int) (int, int) {
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if img, jerr := jpeg.Decode(bytes.NewReader(data)); jerr == nil {
		return img, nil
	}
	if img, perr := png.Decode(bytes.NewReader(data)); perr == nil {
		return img, nil
	}
	return nil, fmt.Errorf("decode image failed: %w", err)
}
