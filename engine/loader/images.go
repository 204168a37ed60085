package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	// Decoders for the image formats glTF files carry.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/anthonynsimon/bild/clone"
)

// ErrUnsupportedImage is returned when image bytes are not in a registered format.
var ErrUnsupportedImage = errors.New("unsupported image format")

// DecodeImage decodes PNG, JPEG or WebP bytes into tightly packed RGBA8 staging data.
//
// Parameters:
//   - data: the encoded image
//
// Returns:
//   - common.TextureStagingData: the decoded pixels
//   - error: ErrUnsupportedImage for an unknown format, or the decoder error
func DecodeImage(data []byte) (common.TextureStagingData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return common.TextureStagingData{}, ErrUnsupportedImage
		}
		return common.TextureStagingData{}, fmt.Errorf("failed to decode image: %w", err)
	}

	rgba := clone.AsRGBA(img)
	b := rgba.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := rgba.Pix
	if rgba.Stride != w*4 || len(pixels) != w*h*4 {
		pixels = make([]byte, w*h*4)
		for y := range h {
			copy(pixels[y*w*4:(y+1)*w*4], rgba.Pix[y*rgba.Stride:y*rgba.Stride+w*4])
		}
	}
	return common.TextureStagingData{Pixels: pixels, Width: uint32(w), Height: uint32(h)}, nil
}

// imageSource yields the encoded bytes of one image.
type imageSource func(index int) ([]byte, string, error)

// decodeImages decodes count images on the worker pool. An image that cannot be read or decoded
// is logged and left with a zero extent, which makes the texture upload skip it.
func decodeImages(pool worker.DynamicWorkerPool, count int, source imageSource, logger *slog.Logger) []common.TextureStagingData {
	out := make([]common.TextureStagingData, count)

	var wg sync.WaitGroup
	for i := range count {
		wg.Add(1)
		idx := i
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()

				data, mimeType, err := source(idx)
				if err == nil {
					out[idx], err = DecodeImage(data)
				}
				if err != nil {
					logger.Warn("loader: image skipped", "image", idx, "mime", mimeType, "error", err)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return out
}
