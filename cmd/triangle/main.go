// Command triangle clears the window to a slowly cycling colour. Given a
// vertex and fragment shader it also draws a triangle over it.
//
//	triangle -vert shaders/vert.spv -frag shaders/frag.spv
//
// The vertex shader reads a vec2 position at location 0 and a vec3 colour
// at location 1.
package main

import (
	"flag"
	"log"
	"math"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/rhi"
	"github.com/vkngwrapper/rhi/internal/sample"
	"golang.org/x/exp/slog"
)

const maxFramesInFlight = 2

type Vertex struct {
	Position mgl32.Vec2
	Color    mgl32.Vec3
}

var vertices = []Vertex{
	{Position: mgl32.Vec2{0, -0.5}, Color: mgl32.Vec3{1, 0, 0}},
	{Position: mgl32.Vec2{0.5, 0.5}, Color: mgl32.Vec3{0, 1, 0}},
	{Position: mgl32.Vec2{-0.5, 0.5}, Color: mgl32.Vec3{0, 0, 1}},
}

func vertexInput() rhi.InputState {
	v := Vertex{}
	return rhi.InputState{
		Bindings: []rhi.VertexBinding{{Binding: 0, Stride: uint32(unsafe.Sizeof(v))}},
		Attributes: []rhi.VertexAttribute{
			{Location: 0, Format: rhi.VertexFloat2, Offset: uint32(unsafe.Offsetof(v.Position))},
			{Location: 1, Format: rhi.VertexFloat3, Offset: uint32(unsafe.Offsetof(v.Color))},
		},
	}
}

// clearColor drifts through the colour cube with a period of a few seconds.
func clearColor(seconds float64) rhi.ClearColorFloat {
	phase := mgl32.Vec3{
		float32(math.Sin(seconds)),
		float32(math.Sin(seconds + 2*math.Pi/3)),
		float32(math.Sin(seconds + 4*math.Pi/3)),
	}
	c := phase.Mul(0.25).Add(mgl32.Vec3{0.25, 0.25, 0.25})
	return rhi.ClearColorFloat{c[0], c[1], c[2], 1}
}

type options struct {
	backend    string
	validation bool
	verbose    bool
	vert, frag string
	width      uint
	height     uint
	frames     int
}

type TriangleApplication struct {
	opts options

	ctx      *sample.Context
	renderer *sample.Renderer

	layout      rhi.PipelineLayout
	pipeline    rhi.Pipeline
	colorFormat rhi.Format
	vertices    rhi.Buffer
}

func (app *TriangleApplication) Run() error {
	var err error
	app.ctx, err = sample.New(sample.Config{
		Title:      "Triangle",
		Width:      uint32(app.opts.width),
		Height:     uint32(app.opts.height),
		Backend:    app.opts.backend,
		Validation: app.opts.validation,
	})
	if err != nil {
		return err
	}
	defer app.ctx.Destroy()

	app.renderer, err = app.ctx.NewRenderer(maxFramesInFlight)
	if err != nil {
		return err
	}
	defer app.renderer.Destroy()
	defer app.cleanup()

	if app.opts.vert != "" || app.opts.frag != "" {
		if err := app.createTriangle(); err != nil {
			return err
		}
		app.renderer.OnRecreate = app.checkFormat
	}

	return app.ctx.Loop(app.opts.frames, func() error {
		return app.renderer.Draw(app.record)
	})
}

func (app *TriangleApplication) cleanup() {
	if err := app.ctx.Device.WaitIdle(); err != nil {
		rhi.Logger().Warn("device wait failed during shutdown", slog.Any("error", err))
	}
	if app.vertices != nil {
		app.vertices.Destroy()
	}
	if app.pipeline != nil {
		app.pipeline.Destroy()
	}
	if app.layout != nil {
		app.layout.Destroy()
	}
}

func (app *TriangleApplication) loadShader(path string) (rhi.Shader, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading shader %s", path)
	}
	return app.ctx.Device.CreateShader(rhi.ShaderDescription{Code: code})
}

func (app *TriangleApplication) createTriangle() error {
	if app.opts.vert == "" || app.opts.frag == "" {
		return errors.New("-vert and -frag must be given together")
	}

	vert, err := app.loadShader(app.opts.vert)
	if err != nil {
		return err
	}
	defer vert.Destroy()
	frag, err := app.loadShader(app.opts.frag)
	if err != nil {
		return err
	}
	defer frag.Destroy()

	app.layout, err = app.ctx.Device.CreatePipelineLayout(rhi.PipelineLayoutDescription{})
	if err != nil {
		return err
	}

	app.colorFormat = app.renderer.Swapchain.Format()
	app.pipeline, err = app.ctx.Device.CreateGraphicsPipeline(rhi.GraphicsPipelineDescription{
		Layout: app.layout,
		Stages: []rhi.ShaderStageDescription{
			{Stage: rhi.ShaderVertex, Shader: vert},
			{Stage: rhi.ShaderFragment, Shader: frag},
		},
		Input:    vertexInput(),
		Assembly: rhi.AssemblyState{Topology: rhi.TopologyTriangleList},
		Rasterization: rhi.RasterizationState{
			PolygonMode: rhi.PolygonFill,
			CullMode:    rhi.CullBack,
			FrontFace:   rhi.FrontFaceClockwise,
		},
		ColorBlend: rhi.ColorBlendState{Attachments: []rhi.ColorAttachmentState{
			{Format: app.colorFormat},
		}},
	})
	if err != nil {
		return err
	}

	app.vertices, err = app.ctx.UploadBuffer(vertices, rhi.BufferVertex)
	return err
}

// checkFormat rejects a recreated swapchain the pipeline cannot render to.
func (app *TriangleApplication) checkFormat(s *sample.Swapchain) error {
	if s.Format() != app.colorFormat {
		return errors.Newf("swapchain format changed to %d", s.Format())
	}
	return nil
}

func (app *TriangleApplication) record(cb rhi.CommandBuffer, index int) error {
	s := app.renderer.Swapchain
	image := s.Images[index]

	err := cb.Barrier(rhi.BarrierDescription{Images: []rhi.ImageBarrier{{
		Image:          image,
		SrcStage:       rhi.StageColorAttachmentOutput,
		DstStage:       rhi.StageColorAttachmentOutput,
		DstAccess:      rhi.AccessColorAttachmentWrite,
		OldLayout:      rhi.LayoutUndefined,
		NewLayout:      rhi.LayoutColorAttachment,
		SrcQueueFamily: rhi.QueueFamilyIgnored,
		DstQueueFamily: rhi.QueueFamilyIgnored,
	}}})
	if err != nil {
		return err
	}

	err = cb.BeginRendering(rhi.RenderingDescription{
		Area: rhi.Rect2D{Extent: s.Extent()},
		Color: []rhi.AttachmentDescription{{
			View:    s.Views[index],
			Layout:  rhi.LayoutColorAttachment,
			LoadOp:  rhi.LoadOpClear,
			StoreOp: rhi.StoreOpStore,
			Clear:   clearColor(hrtime.Now().Seconds()),
		}},
	})
	if err != nil {
		return err
	}

	if app.pipeline != nil {
		if err := app.drawTriangle(cb, s); err != nil {
			return err
		}
	}

	if err := cb.EndRendering(); err != nil {
		return err
	}

	return cb.Barrier(rhi.BarrierDescription{Images: []rhi.ImageBarrier{{
		Image:          image,
		SrcStage:       rhi.StageColorAttachmentOutput,
		SrcAccess:      rhi.AccessColorAttachmentWrite,
		DstStage:       rhi.StageBottomOfPipe,
		OldLayout:      rhi.LayoutColorAttachment,
		NewLayout:      rhi.LayoutPresentSource,
		SrcQueueFamily: rhi.QueueFamilyIgnored,
		DstQueueFamily: rhi.QueueFamilyIgnored,
	}}})
}

func (app *TriangleApplication) drawTriangle(cb rhi.CommandBuffer, s *sample.Swapchain) error {
	if err := cb.SetViewport(s.Viewport()); err != nil {
		return err
	}
	if err := cb.SetScissor(rhi.Rect2D{Extent: s.Extent()}); err != nil {
		return err
	}
	if err := cb.BindPipeline(app.pipeline); err != nil {
		return err
	}
	if err := cb.BindVertexBuffers(0, rhi.VertexBufferBinding{Buffer: app.vertices}); err != nil {
		return err
	}
	return cb.Draw(uint32(len(vertices)), 1, 0, 0)
}

func main() {
	app := &TriangleApplication{}
	flag.StringVar(&app.opts.backend, "backend", "vulkan", "rendering backend")
	flag.BoolVar(&app.opts.validation, "validation", false, "enable the Khronos validation layer")
	flag.BoolVar(&app.opts.verbose, "v", false, "log at debug level")
	flag.StringVar(&app.opts.vert, "vert", "", "SPIR-V vertex shader")
	flag.StringVar(&app.opts.frag, "frag", "", "SPIR-V fragment shader")
	flag.UintVar(&app.opts.width, "width", 800, "window width")
	flag.UintVar(&app.opts.height, "height", 600, "window height")
	flag.IntVar(&app.opts.frames, "frames", 0, "stop after this many frames, 0 runs until the window closes")
	flag.Parse()

	level := slog.LevelInfo
	if app.opts.verbose {
		level = slog.LevelDebug
	}
	rhi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	err := app.Run()
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
