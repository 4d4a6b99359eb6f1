package main

import (
	"image"
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestRecolorPassthrough(t *testing.T) {
	img := generateTestImage(4, 4, color.RGBA{200, 10, 10, 255})
	got, err := recolorArtwork(img, themeByName("Default"))
	assertNoError(t, err)
	if got != image.Image(img) {
		t.Error("Expected a non-duotone theme to return the input unchanged")
	}

	_, err = recolorArtwork(nil, themeByName("Nord"))
	assertError(t, err, "nil image")
}

func TestRecolorDuotoneEndpoints(t *testing.T) {
	theme := themeByName("Nord")
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.Black)
	img.Set(1, 0, color.White)

	got, err := recolorArtwork(img, theme)
	assertNoError(t, err)

	hex := func(c color.Color) string {
		cf, _ := colorful.MakeColor(c)
		return cf.Hex()
	}
	dim, _ := colorful.Hex(theme.Dim)
	primary, _ := colorful.Hex(theme.Primary)
	assertEqual(t, hex(got.At(0, 0)), dim.Hex(), "black maps to dim")
	assertEqual(t, hex(got.At(1, 0)), primary.Hex(), "white maps to primary")

	// The source image is left alone
	assertEqual(t, img.At(0, 0), color.Color(color.RGBA{0, 0, 0, 255}), "input pixel")
}

func TestRecolorKeepsAlphaAndBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	img.SetNRGBA(10, 10, color.NRGBA{255, 255, 255, 128})

	got, err := recolorArtwork(img, themeByName("Dracula"))
	assertNoError(t, err)
	assertEqual(t, got.Bounds(), image.Rect(0, 0, 4, 2), "bounds")
	_, _, _, a := got.At(0, 0).RGBA()
	assertEqual(t, a>>8, uint32(128), "alpha")
}

func TestRecolorRetroPosterizes(t *testing.T) {
	img := generateGradientImage(8, 256, color.RGBA{0, 0, 0, 255}, color.RGBA{255, 255, 255, 255})
	got, err := recolorArtwork(img, themeByName("Game Boy"))
	assertNoError(t, err)

	seen := map[color.Color]bool{}
	b := got.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		seen[got.At(0, y)] = true
	}
	if len(seen) > retroLevels {
		t.Errorf("Expected at most %d tones, got %d", retroLevels, len(seen))
	}
	if len(seen) < 2 {
		t.Errorf("Expected a gradient to keep more than one tone, got %d", len(seen))
	}
}

func TestDuotoneRampInvalidTheme(t *testing.T) {
	_, err := duotoneRamp(Theme{Name: "Broken", Primary: "pink", Dim: "#000000", Duotone: true})
	assertError(t, err, "invalid primary color")
}

func TestMosaicArtwork(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	// Left half black, right half white
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x >= 2 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}

	got := mosaicArtwork(img, 4)
	assertEqual(t, got.Bounds(), img.Bounds(), "bounds")
	r, g, b, _ := got.At(1, 1).RGBA()
	// One cell covers everything, so every pixel is mid grey
	for _, c := range []uint32{r >> 8, g >> 8, b >> 8} {
		if c < 120 || c > 135 {
			t.Errorf("Expected mid grey, got %d", c)
		}
	}

	if mosaicArtwork(img, 1) != image.Image(img) {
		t.Error("Expected a cell size of 1 to return the input")
	}
}

func TestAverageColorEmptyRect(t *testing.T) {
	img := generateTestImage(2, 2, color.White)
	assertEqual(t, averageColor(img, image.Rectangle{}), color.Color(color.Transparent), "empty rect")
}
