package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
)

// retroLevels is the number of tones left after posterizing a retro theme
const retroLevels = 4

// recolorArtwork maps img onto the theme's Dim..Primary ramp by luminance.
// Themes without Duotone return img unchanged. The input is never modified.
func recolorArtwork(img image.Image, theme Theme) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if !theme.Duotone {
		return img, nil
	}

	ramp, err := duotoneRamp(theme)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			// Rec. 601 luma on 16-bit channels, reduced to 8 bits
			lum := (299*r + 587*g + 114*b) / 1000 >> 8
			c := ramp[lum]
			c.A = uint8(a >> 8)
			out.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, c)
		}
	}
	return out, nil
}

// duotoneRamp precomputes the color for every 8-bit luminance value
func duotoneRamp(theme Theme) ([256]color.NRGBA, error) {
	var ramp [256]color.NRGBA

	dim, err := colorful.Hex(theme.Dim)
	if err != nil {
		return ramp, fmt.Errorf("theme %s: invalid dim color %q: %w", theme.Name, theme.Dim, err)
	}
	primary, err := colorful.Hex(theme.Primary)
	if err != nil {
		return ramp, fmt.Errorf("theme %s: invalid primary color %q: %w", theme.Name, theme.Primary, err)
	}

	for i := range ramp {
		t := float64(i) / 255.0
		if theme.Retro {
			level := i * retroLevels / 256
			t = float64(level) / float64(retroLevels-1)
		}
		r, g, b := dim.BlendLab(primary, t).Clamped().RGB255()
		ramp[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return ramp, nil
}

// mosaicArtwork redraws img as a grid of flat cells of the given size
func mosaicArtwork(img image.Image, cell int) image.Image {
	if img == nil || cell <= 1 {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dc := gg.NewContext(w, h)

	for y := 0; y < h; y += cell {
		for x := 0; x < w; x += cell {
			dc.SetColor(averageColor(img, image.Rect(
				bounds.Min.X+x, bounds.Min.Y+y,
				bounds.Min.X+x+cell, bounds.Min.Y+y+cell,
			).Intersect(bounds)))
			dc.DrawRectangle(float64(x), float64(y), float64(cell), float64(cell))
			dc.Fill()
		}
	}
	return dc.Image()
}

// averageColor returns the mean color of img within r
func averageColor(img image.Image, r image.Rectangle) color.Color {
	var sr, sg, sb, sa, n uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, ca := img.At(x, y).RGBA()
			sr += uint64(cr)
			sg += uint64(cg)
			sb += uint64(cb)
			sa += uint64(ca)
			n++
		}
	}
	if n == 0 {
		return color.Transparent
	}
	return color.RGBA64{
		R: uint16(sr / n),
		G: uint16(sg / n),
		B: uint16(sb / n),
		A: uint16(sa / n),
	}
}
