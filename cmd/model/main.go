// Command model draws a textured, spinning OBJ mesh with depth testing.
//
//	model -vert shaders/vert.spv -frag shaders/frag.spv \
//		-mesh models/viking_room.obj -texture textures/viking_room.png
//
// The vertex shader reads the UniformBufferObject at set 0 binding 0 and a
// vec3 position, vec3 colour and vec2 texture coordinate at locations 0 to
// 2. The fragment shader samples binding 1.
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

const (
	maxFramesInFlight = 2
	depthFormat       = rhi.FormatD32Sfloat
)

type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// projection maps view space depth in [near, far] to [0, 1] with Y pointing
// down.
func projection(aspect float32) mgl32.Mat4 {
	near := float32(0.1)
	far := float32(10.0)
	fovy := mgl32.DegToRad(45)
	fmn, f := far-near, float32(1./math.Tan(float64(fovy)/2.0))

	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, -f, 0, 0,
		0, 0, -far / fmn, -1,
		0, 0, -(far * near) / fmn, 0,
	}
}

func uniforms(seconds float64, extent rhi.Extent2D) UniformBufferObject {
	seconds = math.Mod(seconds, 4)
	return UniformBufferObject{
		Model: mgl32.HomogRotate3D(mgl32.DegToRad(90.0*float32(seconds)), mgl32.Vec3{0, 0, 1}),
		View: mgl32.LookAtV(
			mgl32.Vec3{2, 2, 2},
			mgl32.Vec3{0, 0, 0},
			mgl32.Vec3{0, 0, 1},
		),
		Proj: projection(float32(extent.Width) / float32(extent.Height)),
	}
}

type options struct {
	backend    string
	validation bool
	verbose    bool
	vert, frag string
	mesh       string
	material   string
	texture    string
	width      uint
	height     uint
	frames     int
}

type ModelApplication struct {
	opts options

	ctx      *sample.Context
	renderer *sample.Renderer

	depthImage rhi.Image
	depthView  rhi.ImageView

	setLayout   rhi.DescriptorSetLayout
	layout      rhi.PipelineLayout
	pipeline    rhi.Pipeline
	colorFormat rhi.Format

	texture     rhi.Image
	textureView rhi.ImageView
	sampler     rhi.Sampler

	vertices   rhi.Buffer
	indices    rhi.Buffer
	indexCount uint32

	uniformBuffers []rhi.Buffer
	descriptorPool rhi.DescriptorPool
	descriptorSets []rhi.DescriptorSet
}

func (app *ModelApplication) Run() error {
	if app.opts.vert == "" || app.opts.frag == "" || app.opts.mesh == "" || app.opts.texture == "" {
		return errors.New("-vert, -frag, -mesh and -texture are required")
	}

	mesh, err := LoadMesh(app.opts.mesh, app.opts.material)
	if err != nil {
		return err
	}
	pixels, extent, err := LoadTexture(app.opts.texture)
	if err != nil {
		return err
	}

	app.ctx, err = sample.New(sample.Config{
		Title:      "Model",
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

	if err := app.createDepthResources(app.renderer.Swapchain); err != nil {
		return err
	}
	app.renderer.OnRecreate = app.recreateDepthResources

	if err := app.createTexture(pixels, extent); err != nil {
		return err
	}
	if err := app.createMeshBuffers(mesh); err != nil {
		return err
	}
	if err := app.createDescriptors(); err != nil {
		return err
	}
	if err := app.createPipeline(); err != nil {
		return err
	}

	return app.ctx.Loop(app.opts.frames, func() error {
		return app.renderer.Draw(app.record)
	})
}

func (app *ModelApplication) cleanup() {
	if err := app.ctx.Device.WaitIdle(); err != nil {
		rhi.Logger().Warn("device wait failed during shutdown", slog.Any("error", err))
	}
	app.destroyDepthResources()

	if app.pipeline != nil {
		app.pipeline.Destroy()
	}
	if app.layout != nil {
		app.layout.Destroy()
	}
	if app.descriptorPool != nil {
		app.descriptorPool.Destroy()
	}
	if app.setLayout != nil {
		app.setLayout.Destroy()
	}
	for _, buffer := range app.uniformBuffers {
		buffer.Destroy()
	}
	if app.indices != nil {
		app.indices.Destroy()
	}
	if app.vertices != nil {
		app.vertices.Destroy()
	}
	if app.sampler != nil {
		app.sampler.Destroy()
	}
	if app.textureView != nil {
		app.textureView.Destroy()
	}
	if app.texture != nil {
		app.texture.Destroy()
	}
}

func (app *ModelApplication) createDepthResources(s *sample.Swapchain) error {
	extent := s.Extent()
	var err error
	app.depthImage, err = app.ctx.Device.CreateImage(rhi.ImageDescription{
		Type:    rhi.ImageType2D,
		Format:  depthFormat,
		Extent:  rhi.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		Samples: rhi.SampleCount1,
		Tiling:  rhi.TilingOptimal,
		Usage:   rhi.ImageDepthStencilAttachment,
	})
	if err != nil {
		return err
	}

	app.depthView, err = app.ctx.Device.CreateImageView(rhi.ImageViewDescription{
		Image:       app.depthImage,
		Type:        rhi.ViewType2D,
		Subresource: rhi.ImageSubresourceRange{Aspect: rhi.AspectDepth},
	})
	return err
}

func (app *ModelApplication) destroyDepthResources() {
	if app.depthView != nil {
		app.depthView.Destroy()
		app.depthView = nil
	}
	if app.depthImage != nil {
		app.depthImage.Destroy()
		app.depthImage = nil
	}
}

// recreateDepthResources runs after the device went idle for the swapchain
// rebuild, so the old depth image is no longer in use.
func (app *ModelApplication) recreateDepthResources(s *sample.Swapchain) error {
	if s.Format() != app.colorFormat {
		return errors.Newf("swapchain format changed to %d", s.Format())
	}
	app.destroyDepthResources()
	return app.createDepthResources(s)
}

func (app *ModelApplication) createTexture(pixels []byte, extent rhi.Extent2D) error {
	var err error
	app.texture, err = app.ctx.UploadImage(pixels, extent, rhi.FormatR8G8B8A8Srgb)
	if err != nil {
		return err
	}

	app.textureView, err = app.ctx.Device.CreateImageView(rhi.ImageViewDescription{
		Image: app.texture,
		Type:  rhi.ViewType2D,
	})
	if err != nil {
		return err
	}

	app.sampler, err = app.ctx.Device.CreateSampler(rhi.SamplerDescription{
		MagFilter:    rhi.FilterLinear,
		MinFilter:    rhi.FilterLinear,
		MipmapMode:   rhi.MipmapLinear,
		AddressModeU: rhi.AddressRepeat,
		AddressModeV: rhi.AddressRepeat,
		AddressModeW: rhi.AddressRepeat,
		CompareOp:    rhi.CompareAlways,
		BorderColor:  rhi.BorderIntOpaqueBlack,
	})
	return err
}

func (app *ModelApplication) createMeshBuffers(mesh *Mesh) error {
	var err error
	app.vertices, err = app.ctx.UploadBuffer(mesh.Vertices, rhi.BufferVertex)
	if err != nil {
		return err
	}
	app.indices, err = app.ctx.UploadBuffer(mesh.Indices, rhi.BufferIndex)
	if err != nil {
		return err
	}
	app.indexCount = uint32(len(mesh.Indices))
	rhi.Logger().Info("mesh loaded", slog.Int("vertices", len(mesh.Vertices)), slog.Int("indices", len(mesh.Indices)))
	return nil
}

func (app *ModelApplication) createDescriptors() error {
	var err error
	app.setLayout, err = app.ctx.Device.CreateDescriptorSetLayout(rhi.DescriptorSetLayoutDescription{
		Bindings: []rhi.DescriptorSetLayoutBinding{
			{Binding: 0, Type: rhi.DescriptorUniformBuffer, Count: 1, Stages: rhi.ShaderVertex},
			{Binding: 1, Type: rhi.DescriptorCombinedImageSampler, Count: 1, Stages: rhi.ShaderFragment},
		},
	})
	if err != nil {
		return err
	}

	app.descriptorPool, err = app.ctx.Device.CreateDescriptorPool(rhi.DescriptorPoolDescription{
		MaxSets: maxFramesInFlight,
		PoolSizes: []rhi.DescriptorPoolSize{
			{Type: rhi.DescriptorUniformBuffer, Count: maxFramesInFlight},
			{Type: rhi.DescriptorCombinedImageSampler, Count: maxFramesInFlight},
		},
	})
	if err != nil {
		return err
	}

	layouts := make([]rhi.DescriptorSetLayout, maxFramesInFlight)
	for i := range layouts {
		layouts[i] = app.setLayout
	}
	app.descriptorSets, err = app.ctx.Device.AllocateDescriptorSets(app.descriptorPool, layouts)
	if err != nil {
		return err
	}

	var writes []rhi.DescriptorWrite
	for i, set := range app.descriptorSets {
		buffer, err := app.ctx.Device.CreateBuffer(rhi.BufferDescription{
			Size:  uint64(unsafe.Sizeof(UniformBufferObject{})),
			Usage: rhi.BufferUniform,
			Memory: rhi.AllocationDescription{
				Access:             rhi.HostAccessSequentialWrite,
				PersistentlyMapped: true,
			},
		})
		if err != nil {
			return err
		}
		app.uniformBuffers = append(app.uniformBuffers, buffer)

		writes = append(writes,
			rhi.DescriptorWrite{
				Set:     set,
				Binding: 0,
				Type:    rhi.DescriptorUniformBuffer,
				Buffers: []rhi.DescriptorBufferInfo{{Buffer: app.uniformBuffers[i], Range: rhi.WholeSize}},
			},
			rhi.DescriptorWrite{
				Set:     set,
				Binding: 1,
				Type:    rhi.DescriptorCombinedImageSampler,
				Images: []rhi.DescriptorImageInfo{{
					View:    app.textureView,
					Sampler: app.sampler,
					Layout:  rhi.LayoutShaderReadOnly,
				}},
			},
		)
	}
	return app.ctx.Device.UpdateDescriptorSets(writes, nil)
}

func (app *ModelApplication) loadShader(path string) (rhi.Shader, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading shader %s", path)
	}
	return app.ctx.Device.CreateShader(rhi.ShaderDescription{Code: code})
}

func (app *ModelApplication) createPipeline() error {
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

	app.layout, err = app.ctx.Device.CreatePipelineLayout(rhi.PipelineLayoutDescription{
		SetLayouts: []rhi.DescriptorSetLayout{app.setLayout},
	})
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
			FrontFace:   rhi.FrontFaceCounterClockwise,
		},
		DepthStencil: rhi.DepthStencilState{
			DepthFormat:      depthFormat,
			EnableDepthTest:  true,
			EnableDepthWrite: true,
			DepthCompareOp:   rhi.CompareLess,
		},
		ColorBlend: rhi.ColorBlendState{Attachments: []rhi.ColorAttachmentState{
			{Format: app.colorFormat},
		}},
	})
	return err
}

func (app *ModelApplication) record(cb rhi.CommandBuffer, index int) error {
	s := app.renderer.Swapchain
	frame := app.renderer.Frame()

	ubo := uniforms(hrtime.Now().Seconds(), s.Extent())
	if err := sample.WriteData(app.uniformBuffers[frame], 0, ubo); err != nil {
		return err
	}

	err := cb.Barrier(rhi.BarrierDescription{Images: []rhi.ImageBarrier{
		{
			Image:          s.Images[index],
			SrcStage:       rhi.StageColorAttachmentOutput,
			DstStage:       rhi.StageColorAttachmentOutput,
			DstAccess:      rhi.AccessColorAttachmentWrite,
			OldLayout:      rhi.LayoutUndefined,
			NewLayout:      rhi.LayoutColorAttachment,
			SrcQueueFamily: rhi.QueueFamilyIgnored,
			DstQueueFamily: rhi.QueueFamilyIgnored,
		},
		{
			Image:          app.depthImage,
			SrcStage:       rhi.StageEarlyFragmentTests | rhi.StageLateFragmentTests,
			SrcAccess:      rhi.AccessDepthStencilAttachmentWrite,
			DstStage:       rhi.StageEarlyFragmentTests | rhi.StageLateFragmentTests,
			DstAccess:      rhi.AccessDepthStencilAttachmentRead | rhi.AccessDepthStencilAttachmentWrite,
			OldLayout:      rhi.LayoutUndefined,
			NewLayout:      rhi.LayoutDepthStencilAttachment,
			SrcQueueFamily: rhi.QueueFamilyIgnored,
			DstQueueFamily: rhi.QueueFamilyIgnored,
			Subresource:    rhi.ImageSubresourceRange{Aspect: rhi.AspectDepth},
		},
	}})
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
		}},
		Depth: &rhi.AttachmentDescription{
			View:    app.depthView,
			Layout:  rhi.LayoutDepthStencilAttachment,
			LoadOp:  rhi.LoadOpClear,
			StoreOp: rhi.StoreOpDontCare,
			Clear:   rhi.DefaultDepthClear,
		},
	})
	if err != nil {
		return err
	}

	if err := app.drawModel(cb, s, frame); err != nil {
		return err
	}
	if err := cb.EndRendering(); err != nil {
		return err
	}

	return cb.Barrier(rhi.BarrierDescription{Images: []rhi.ImageBarrier{{
		Image:          s.Images[index],
		SrcStage:       rhi.StageColorAttachmentOutput,
		SrcAccess:      rhi.AccessColorAttachmentWrite,
		DstStage:       rhi.StageBottomOfPipe,
		OldLayout:      rhi.LayoutColorAttachment,
		NewLayout:      rhi.LayoutPresentSource,
		SrcQueueFamily: rhi.QueueFamilyIgnored,
		DstQueueFamily: rhi.QueueFamilyIgnored,
	}}})
}

func (app *ModelApplication) drawModel(cb rhi.CommandBuffer, s *sample.Swapchain, frame int) error {
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
	if err := cb.BindIndexBuffer(app.indices, 0, rhi.IndexUInt32); err != nil {
		return err
	}
	err := cb.BindDescriptorSets(rhi.BindPointGraphics, app.layout,
		[]rhi.DescriptorSet{app.descriptorSets[frame]}, nil)
	if err != nil {
		return err
	}
	return cb.DrawIndexed(app.indexCount, 1, 0, 0, 0)
}

func main() {
	app := &ModelApplication{}
	flag.StringVar(&app.opts.backend, "backend", "vulkan", "rendering backend")
	flag.BoolVar(&app.opts.validation, "validation", false, "enable the Khronos validation layer")
	flag.BoolVar(&app.opts.verbose, "v", false, "log at debug level")
	flag.StringVar(&app.opts.vert, "vert", "", "SPIR-V vertex shader")
	flag.StringVar(&app.opts.frag, "frag", "", "SPIR-V fragment shader")
	flag.StringVar(&app.opts.mesh, "mesh", "", "OBJ mesh")
	flag.StringVar(&app.opts.material, "material", "", "MTL file for the mesh")
	flag.StringVar(&app.opts.texture, "texture", "", "PNG texture")
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
