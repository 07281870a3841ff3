// Package sdl2 provides rhi windows backed by SDL2. Windows can create
// Vulkan surfaces, so they work with the vulkan backend.
//
// SDL requires every call in this package to happen on the thread that
// created the Manager.
package sdl2

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

type Manager struct {
	windows map[uint32]*Window
	once    sync.Once
}

// NewManager initializes the SDL video subsystem.
func NewManager() (*Manager, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "sdl.Init")
	}
	return &Manager{windows: make(map[uint32]*Window)}, nil
}

// InstanceProcAddr is the Vulkan loader entry point SDL loaded. Pass it as
// rhi.DriverDescription.InstanceProcAddr after the first window exists.
func (m *Manager) InstanceProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (m *Manager) CreateWindow(desc rhi.WindowDescription) (rhi.Window, error) {
	return m.NewWindow(desc)
}

// NewWindow is CreateWindow returning the concrete type.
func (m *Manager) NewWindow(desc rhi.WindowDescription) (*Window, error) {
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		return nil, rhi.InvalidArgumentf("CreateWindow: extent %dx%d is empty", desc.Extent.Width, desc.Extent.Height)
	}

	var flags uint32 = sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN
	if desc.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}
	handle, err := sdl.CreateWindow(desc.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(desc.Extent.Width), int32(desc.Extent.Height), flags)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow")
	}
	id, err := handle.GetID()
	if err != nil {
		handle.Destroy()
		return nil, errors.Wrap(err, "sdl.GetWindowID")
	}

	w := &Window{manager: m, handle: handle, id: id}
	m.windows[id] = w
	rhi.Logger().Debug("window created", slog.String("title", desc.Title),
		slog.Uint64("width", uint64(desc.Extent.Width)), slog.Uint64("height", uint64(desc.Extent.Height)))
	return w, nil
}

// PollEvents drains the SDL event queue. A quit event asks every window to
// close.
func (m *Manager) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			for _, w := range m.windows {
				w.SetShouldClose(true)
			}
		case *sdl.WindowEvent:
			w, ok := m.windows[e.WindowID]
			if !ok {
				continue
			}
			switch e.Event {
			case sdl.WINDOWEVENT_CLOSE:
				w.SetShouldClose(true)
			case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
				w.resized = true
			}
		}
	}
}

// Destroy closes every window still open and shuts SDL down.
func (m *Manager) Destroy() {
	m.once.Do(func() {
		for _, w := range m.windows {
			w.Destroy()
		}
		sdl.Quit()
	})
}

// Window implements rhi.Window and vulkan.SurfaceSource.
type Window struct {
	manager     *Manager
	handle      *sdl.Window
	id          uint32
	shouldClose bool
	resized     bool
	destroyed   bool
}

func (w *Window) Handle() uintptr           { return uintptr(unsafe.Pointer(w.handle)) }
func (w *Window) ShouldClose() bool         { return w.shouldClose }
func (w *Window) SetShouldClose(close bool) { w.shouldClose = close }

func (w *Window) DrawableSize() rhi.Extent2D {
	width, height := w.handle.VulkanGetDrawableSize()
	return rhi.Extent2D{Width: uint32(width), Height: uint32(height)}
}

// Minimized windows have no drawable area; skip rendering until they are
// restored.
func (w *Window) Minimized() bool {
	return w.handle.GetFlags()&sdl.WINDOW_MINIMIZED != 0
}

// TakeResized reports whether the window was resized since the last call.
func (w *Window) TakeResized() bool {
	resized := w.resized
	w.resized = false
	return resized
}

// InstanceExtensions lists the surface extensions a Vulkan instance needs
// to present to this window.
func (w *Window) InstanceExtensions() []string {
	return w.handle.VulkanGetInstanceExtensions()
}

func (w *Window) CreateVulkanSurface(instance core1_0.Instance, ext khr_surface.Extension) (khr_surface.Surface, error) {
	surface, err := vkng_sdl2.CreateSurface(instance, ext, w.handle)
	if err != nil {
		return nil, errors.Wrap(err, "SDL_Vulkan_CreateSurface")
	}
	return surface, nil
}

func (w *Window) Destroy() {
	if w.destroyed {
		return
	}
	w.destroyed = true
	delete(w.manager.windows, w.id)
	w.handle.Destroy()
}
