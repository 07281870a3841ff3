package sdl2

import (
	"os"
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/rhi"
	"github.com/vkngwrapper/rhi/vulkan"
)

var (
	_ rhi.WindowManager     = (*Manager)(nil)
	_ rhi.Window            = (*Window)(nil)
	_ vulkan.SurfaceSource = (*Window)(nil)
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		t.Skip("no display")
	}
	m, err := NewManager()
	if err != nil {
		t.Skipf("SDL unavailable: %v", err)
	}
	t.Cleanup(m.Destroy)
	return m
}

func TestWindowLifecycle(t *testing.T) {
	m := newTestManager(t)

	w, err := m.NewWindow(rhi.WindowDescription{Title: "sdl2 test", Extent: rhi.Extent2D{Width: 320, Height: 240}})
	if err != nil {
		t.Skipf("cannot create a Vulkan window: %v", err)
	}
	if w.Handle() == 0 {
		t.Error("window has no handle")
	}
	if size := w.DrawableSize(); size.Width == 0 || size.Height == 0 {
		t.Errorf("drawable size = %+v", size)
	}

	m.PollEvents()
	if w.ShouldClose() {
		t.Fatal("fresh window wants to close")
	}
	w.SetShouldClose(true)
	if !w.ShouldClose() {
		t.Error("SetShouldClose(true) did not stick")
	}

	w.Destroy()
	w.Destroy()
	if len(m.windows) != 0 {
		t.Errorf("%d windows still tracked", len(m.windows))
	}
}

func TestEmptyExtent(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.CreateWindow(rhi.WindowDescription{Title: "empty"}); !errors.Is(err, rhi.ErrInvalidArgument) {
		t.Errorf("CreateWindow with no extent = %v, want ErrInvalidArgument", err)
	}
}
