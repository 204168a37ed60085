package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-voxel/engine/renderer/texture"
)

// UploadTextures creates one GPU texture per description texture. Textures referenced as a base
// color map are uploaded as sRGB; every other map stays linear. A texture whose image failed to
// decode (zero extent) is left nil so materials fall back to the defaults.
//
// Parameters:
//   - dev: the device to allocate on
//   - desc: the scene description
//   - images: decoded images indexed by Texture.Image
//
// Returns:
//   - []*texture.Texture: textures indexed like desc.Textures
//   - error: ErrLoad if a texture references a missing image, or an upload error
func UploadTextures(dev device.Device, desc *Description, images []common.TextureStagingData) ([]*texture.Texture, error) {
	srgb := make(map[int]bool)
	for _, m := range desc.Materials {
		if m.BaseColorTexture != nil {
			srgb[*m.BaseColorTexture] = true
		}
	}

	out := make([]*texture.Texture, len(desc.Textures))
	for i, t := range desc.Textures {
		if t.Image < 0 || t.Image >= len(images) {
			return nil, fmt.Errorf("%w: texture %d references image %d (%d images)", ErrLoad, i, t.Image, len(images))
		}
		img := images[t.Image]
		if img.Width == 0 || img.Height == 0 {
			continue
		}
		tex, err := texture.FromImage(dev, fmt.Sprintf("Texture %d", i), img, t.Sampler, srgb[i])
		if err != nil {
			return nil, err
		}
		out[i] = tex
	}
	return out, nil
}
