package iconpool

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/listing"
)

// ThumbnailLoader decodes image files and scales them to fit MaxPixels.
type ThumbnailLoader struct {
	MaxPixels int
}

// Load implements Loader.
func (t ThumbnailLoader) Load(ctx context.Context, path string, e *listing.Entry) (image.Image, error) {
	if e != nil && e.IsDir {
		return nil, fmt.Errorf("thumbnail: %s is a directory", path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		debug.Log(debug.ICON, "thumbnail: failed to decode %s: %v", path, err)
		return nil, fmt.Errorf("thumbnail: decode %s: %w", path, err)
	}
	return Scale(img, t.MaxPixels), nil
}

// Scale shrinks src to fit in maxPixels on the longer side. Smaller images
// are returned unchanged.
func Scale(src image.Image, maxPixels int) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxPixels <= 0 || (width <= maxPixels && height <= maxPixels) {
		return src
	}

	var scale float64
	if width > height {
		scale = float64(maxPixels) / float64(width)
	} else {
		scale = float64(maxPixels) / float64(height)
	}
	newWidth := max(int(float64(width)*scale), 1)
	newHeight := max(int(float64(height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
