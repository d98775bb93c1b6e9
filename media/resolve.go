package media

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	color_extractor "github.com/marekm4/color-extractor"
	_ "golang.org/x/image/webp"

	"github.com/jaison-mx/cartelera/layout"
	"github.com/jaison-mx/cartelera/playlist"
)

var (
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
	videoExtensions = []string{".mp4", ".avi", ".mov"}
)

// KindForPath dispatches on file extension. The second return is false
// for anything we don't know how to play.
func KindForPath(path string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range imageExtensions {
		if ext == e {
			return KindImage, true
		}
	}
	for _, e := range videoExtensions {
		if ext == e {
			return KindVideo, true
		}
	}
	return "", false
}

// Resolve opens a cached asset as a playable item bound to its rule.
// Decode failures surface as errors so the caller can log and exclude
// the item rather than crash a refresh cycle.
func Resolve(path string, rule playlist.Rule) (Item, error) {
	kind, ok := KindForPath(path)
	if !ok {
		return Item{}, fmt.Errorf("media: unsupported extension for %s", path)
	}

	item := Item{
		ID:   GenerateID(kind, rule.Src),
		Kind: kind,
		Mode: layout.Normalise(rule.Escalado),
		Rule: rule,
	}

	switch kind {
	case KindImage:
		f, err := os.Open(path)
		if err != nil {
			return Item{}, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return Item{}, fmt.Errorf("media: decoding %s: %w", path, err)
		}
		item.Bitmap = img
		item.Colours = dominantColours(img)
	case KindVideo:
		source, err := OpenVideo(path)
		if err != nil {
			return Item{}, fmt.Errorf("media: opening %s: %w", path, err)
		}
		item.Source = source
	}

	return item, nil
}

func dominantColours(img image.Image) []string {
	var domColours []string
	for _, c := range color_extractor.ExtractColors(img) {
		domColours = append(domColours, colorToHexString(c))
	}
	return domColours
}

func colorToHexString(c color.Color) string {
	r, g, b, a := c.RGBA()
	rgba := color.RGBA{uint8(r), uint8(g), uint8(b), uint8(a)}
	return fmt.Sprintf("#%.2x%.2x%.2x", rgba.R, rgba.G, rgba.B)
}
