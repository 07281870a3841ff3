package vulkan

import (
	"testing"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/rhi"
)

func TestSurfaceCapabilities(t *testing.T) {
	native := &khr_surface.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  8,
		CurrentExtent:  core1_0.Extent2D{Width: 800, Height: 600},
		MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
	}

	caps := surfaceCapabilities(native, rhi.Extent2D{Width: 1024, Height: 768})
	if caps.MinImageCount != 2 || caps.MaxImageCount != 8 {
		t.Errorf("image counts = %d, %d", caps.MinImageCount, caps.MaxImageCount)
	}
	if caps.CurrentExtent != (rhi.Extent2D{Width: 800, Height: 600}) {
		t.Errorf("current extent = %+v, want the surface's", caps.CurrentExtent)
	}

	native.CurrentExtent = core1_0.Extent2D{Width: -1, Height: -1}
	caps = surfaceCapabilities(native, rhi.Extent2D{Width: 8000, Height: 768})
	if caps.CurrentExtent != (rhi.Extent2D{Width: 4096, Height: 768}) {
		t.Errorf("current extent = %+v, want the clamped drawable size", caps.CurrentExtent)
	}
}

func TestClampExtent(t *testing.T) {
	min := rhi.Extent2D{Width: 16, Height: 16}
	cases := []struct {
		in, max, want rhi.Extent2D
	}{
		{rhi.Extent2D{Width: 8, Height: 32}, rhi.Extent2D{Width: 64, Height: 64}, rhi.Extent2D{Width: 16, Height: 32}},
		{rhi.Extent2D{Width: 100, Height: 100}, rhi.Extent2D{Width: 64, Height: 64}, rhi.Extent2D{Width: 64, Height: 64}},
		{rhi.Extent2D{Width: 100, Height: 100}, rhi.Extent2D{}, rhi.Extent2D{Width: 100, Height: 100}},
	}
	for _, c := range cases {
		if got := clampExtent(c.in, min, c.max); got != c.want {
			t.Errorf("clampExtent(%+v, %+v, %+v) = %+v, want %+v", c.in, min, c.max, got, c.want)
		}
	}
}
