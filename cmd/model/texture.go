package main

import (
	"image"
	"image/draw"
	"image/png"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/rhi"
)

// toRGBA returns tightly packed 8-bit RGBA pixels.
func toRGBA(img image.Image) ([]byte, rhi.Extent2D) {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba.Pix, rhi.Extent2D{Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy())}
}

func LoadTexture(path string) ([]byte, rhi.Extent2D, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rhi.Extent2D{}, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, rhi.Extent2D{}, errors.Wrapf(err, "decoding %s", path)
	}
	pixels, extent := toRGBA(img)
	return pixels, extent, nil
}
