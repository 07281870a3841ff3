package rhi

// Window is what the rendering layer needs from a window system: a stable
// handle and close-request polling. Backends additionally require the
// window to implement their own surface-creation interface.
type Window interface {
	Handle() uintptr
	ShouldClose() bool
	SetShouldClose(close bool)
	// DrawableSize is the size of the window in pixels.
	DrawableSize() Extent2D
}

type WindowDescription struct {
	Title     string
	Extent    Extent2D
	Resizable bool
}

// WindowManager owns the platform event loop.
type WindowManager interface {
	CreateWindow(desc WindowDescription) (Window, error)
	PollEvents()
	Destroy()
}
