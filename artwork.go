package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// kittyImageID is the fixed image ID used for the artwork placement
const kittyImageID = 42

// decodeArtworkData decodes base64-encoded or raw image data into an image.Image
// This handles both base64 (from data: URLs and some players) and raw bytes
func decodeArtworkData(imgData []byte) (image.Image, error) {
	// Try base64 decode first
	var imageData []byte
	if decoded, err := base64.StdEncoding.DecodeString(string(imgData)); err == nil {
		imageData = decoded
	} else {
		imageData = imgData
	}

	if len(imageData) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}

// fetchArtworkData loads raw artwork bytes from an http(s) or file URL
func fetchArtworkData(ctx context.Context, client *http.Client, artURL string) ([]byte, error) {
	switch {
	case strings.HasPrefix(artURL, "file://"):
		u, err := url.Parse(artURL)
		if err != nil {
			return nil, fmt.Errorf("invalid artwork URL: %w", err)
		}
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read artwork file: %w", err)
		}
		return data, nil

	case strings.HasPrefix(artURL, "http://"), strings.HasPrefix(artURL, "https://"):
		data, err := httpGet(ctx, client, artURL)
		if err != nil {
			return nil, fmt.Errorf("failed to download artwork: %w", err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("unsupported artwork URL scheme: %s", artURL)
}

// downscaleArtwork shrinks img to at most maxWidth pixels wide, keeping its aspect ratio
func downscaleArtwork(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	return resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
}

// Extract dominant color from image and convert to hex
// Uses a sampling approach to find vibrant, light colors suitable for dark backgrounds
func extractDominantColor(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}

	bounds := img.Bounds()

	// Sample every Nth pixel; much faster than analyzing every pixel
	colorMap := make(map[uint32]int)
	sampleRate := 5

	for y := bounds.Min.Y; y < bounds.Max.Y; y += sampleRate {
		for x := bounds.Min.X; x < bounds.Max.X; x += sampleRate {
			r, g, b, a := img.At(x, y).RGBA()

			// Skip transparent pixels
			if a < 32768 {
				continue
			}

			rgb := (uint32(uint8(r>>8)) << 16) | (uint32(uint8(g>>8)) << 8) | uint32(uint8(b>>8))
			colorMap[rgb]++
		}
	}

	type colorScore struct {
		rgb   uint32
		score float64
	}

	var candidates []colorScore

	for rgb, count := range colorMap {
		rf := float64(uint8(rgb>>16)) / 255.0
		gf := float64(uint8(rgb>>8)) / 255.0
		bf := float64(uint8(rgb)) / 255.0

		hi := max(rf, gf, bf)
		lo := min(rf, gf, bf)
		lightness := (hi + lo) / 2.0

		var saturation float64
		if hi != lo {
			if lightness > 0.5 {
				saturation = (hi - lo) / (2.0 - hi - lo)
			} else {
				saturation = (hi - lo) / (hi + lo)
			}
		}

		// Skip colors that are too dark, near-white, or too unsaturated
		if lightness < 0.3 || lightness > 0.85 || saturation < 0.25 {
			continue
		}

		// Prefer vibrant colors that are reasonably light
		lightnessScore := lightness
		if lightness > 0.7 {
			lightnessScore = 0.7 - (lightness - 0.7)
		}

		score := (saturation * 2.5) + (lightnessScore * 1.5) + (float64(count) / 1000.0)
		candidates = append(candidates, colorScore{rgb: rgb, score: score})
	}

	if len(candidates) == 0 {
		// Fallback: K-means if sampling didn't find good colors
		colors, err := prominentcolor.Kmeans(img)
		if err != nil || len(colors) == 0 {
			return "", fmt.Errorf("no suitable colors found")
		}
		c := colors[0]
		return fmt.Sprintf("#%02x%02x%02x", c.Color.R, c.Color.G, c.Color.B), nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].rgb < candidates[j].rgb
	})

	best := candidates[0].rgb
	return fmt.Sprintf("#%02x%02x%02x", uint8(best>>16), uint8(best>>8), uint8(best)), nil
}

// Check if terminal supports Kitty graphics protocol
func supportsKittyGraphics() bool {
	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	if strings.Contains(term, "kitty") || strings.Contains(term, "konsole") {
		return true
	}

	if termProgram == "ghostty" || termProgram == "WezTerm" {
		return true
	}

	return false
}

// encodeArtworkForKitty encodes img as a Kitty graphics protocol placement
// that is columns cells wide
func encodeArtworkForKitty(img image.Image, columns int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	// Kitty protocol needs chunking for large payloads (max 4096 bytes per chunk)
	const chunkSize = 4096
	var result strings.Builder

	// Delete any previous placement first
	result.WriteString(fmt.Sprintf("\033_Ga=d,d=I,i=%d\033\\", kittyImageID))

	if len(encoded) <= chunkSize {
		// Columns-based sizing keeps the image zoom-independent
		result.WriteString(fmt.Sprintf("\033_Ga=T,f=100,t=d,i=%d,c=%d,C=1;%s\033\\", kittyImageID, columns, encoded))
		return result.String(), nil
	}

	for i := 0; i < len(encoded); i += chunkSize {
		end := min(i+chunkSize, len(encoded))
		chunk := encoded[i:end]

		switch {
		case i == 0:
			result.WriteString(fmt.Sprintf("\033_Ga=T,f=100,t=d,i=%d,c=%d,C=1,m=1;%s\033\\", kittyImageID, columns, chunk))
		case end == len(encoded):
			result.WriteString(fmt.Sprintf("\033_Gm=0;%s\033\\", chunk))
		default:
			result.WriteString(fmt.Sprintf("\033_Gm=1;%s\033\\", chunk))
		}
	}

	return result.String(), nil
}

// renderHalfBlocks draws img as columns x columns/2 terminal cells using
// upper half blocks, two pixels per cell. Works on any true-color terminal.
func renderHalfBlocks(img image.Image, columns int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}
	if columns <= 0 {
		return "", fmt.Errorf("invalid column count %d", columns)
	}

	rows := columns / 2
	scaled := resize.Resize(uint(columns), uint(rows*2), img, resize.Bilinear)
	bounds := scaled.Bounds()

	hex := func(x, y int) lipgloss.Color {
		r, g, b, _ := scaled.At(x, y).RGBA()
		return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
	}

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		top := bounds.Min.Y + row*2
		for col := 0; col < columns; col++ {
			x := bounds.Min.X + col
			sb.WriteString(lipgloss.NewStyle().
				Foreground(hex(x, top)).
				Background(hex(x, top+1)).
				Render("▀"))
		}
	}
	return sb.String(), nil
}

// deleteKittyImages removes every Kitty image placement from the terminal
func deleteKittyImages() string {
	return "\033_Ga=d,d=A\033\\"
}
