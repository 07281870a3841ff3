package vulkan

import (
	"testing"
	"time"

	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/rhi"
)

func TestFormatsRoundTrip(t *testing.T) {
	for f := rhi.FormatUndefined; f <= rhi.FormatD32SfloatS8Uint; f++ {
		native, ok := formats[f]
		if !ok {
			t.Errorf("format %d has no native equivalent", f)
			continue
		}
		if back := fromFormat(native); back != f {
			t.Errorf("format %d round-trips to %d", f, back)
		}
	}
	if got := fromFormat(core1_0.Format(-12345)); got != rhi.FormatUndefined {
		t.Errorf("unknown native format maps to %d", got)
	}
}

func TestFlagTablesCoverEveryBit(t *testing.T) {
	for s := rhi.StageTopOfPipe; s <= rhi.StageAllCommands; s <<= 1 {
		if _, ok := pipelineStages[s]; !ok {
			t.Errorf("pipeline stage %#x missing", s)
		}
	}
	for a := rhi.AccessIndirectCommandRead; a <= rhi.AccessMemoryWrite; a <<= 1 {
		if _, ok := accessFlags[a]; !ok {
			t.Errorf("access %#x missing", a)
		}
	}
	for u := rhi.BufferTransferSrc; u <= rhi.BufferIndirect; u <<= 1 {
		if _, ok := bufferUsages[u]; !ok {
			t.Errorf("buffer usage %#x missing", u)
		}
	}
	for u := rhi.ImageSampled; u <= rhi.ImageTransientAttachment; u <<= 1 {
		if _, ok := imageUsages[u]; !ok {
			t.Errorf("image usage %#x missing", u)
		}
	}
	for s := rhi.ShaderVertex; s <= rhi.ShaderTessellationEvaluation; s <<= 1 {
		if _, ok := shaderStages[s]; !ok {
			t.Errorf("shader stage %#x missing", s)
		}
	}
}

func TestEnumTablesComplete(t *testing.T) {
	for l := rhi.LayoutUndefined; l <= rhi.LayoutPresentSource; l++ {
		if _, ok := imageLayouts[l]; !ok {
			t.Errorf("layout %d missing", l)
		}
	}
	for c := rhi.CompareNever; c <= rhi.CompareAlways; c++ {
		if _, ok := compareOps[c]; !ok {
			t.Errorf("compare op %d missing", c)
		}
	}
	for s := rhi.StencilKeep; s <= rhi.StencilDecrementAndWrap; s++ {
		if _, ok := stencilOps[s]; !ok {
			t.Errorf("stencil op %d missing", s)
		}
	}
	for b := rhi.BlendZero; b <= rhi.BlendOneMinusConstantAlpha; b++ {
		if _, ok := blendFactors[b]; !ok {
			t.Errorf("blend factor %d missing", b)
		}
	}
	for o := rhi.LogicClear; o <= rhi.LogicSet; o++ {
		if _, ok := logicOps[o]; !ok {
			t.Errorf("logic op %d missing", o)
		}
	}
	for v := rhi.VertexFloat; v <= rhi.VertexUInt4; v++ {
		if _, ok := vertexFormats[v]; !ok {
			t.Errorf("vertex format %d missing", v)
		}
	}
	for _, s := range []rhi.SampleCount{rhi.SampleCount1, rhi.SampleCount4, rhi.SampleCount64} {
		if _, ok := sampleCounts[s]; !ok {
			t.Errorf("sample count %d missing", s)
		}
	}
}

func TestTranslateFlags(t *testing.T) {
	got := translateFlags(rhi.BufferVertex|rhi.BufferTransferDst, bufferUsages)
	want := core1_0.BufferUsageVertexBuffer | core1_0.BufferUsageTransferDst
	if got != want {
		t.Errorf("translateFlags = %v, want %v", got, want)
	}
	if got := translateFlags(rhi.BufferUsage(0), bufferUsages); got != 0 {
		t.Errorf("empty usage = %v", got)
	}
}

func TestToStages(t *testing.T) {
	if got := toStages(rhi.StageNone); got != core1_0.PipelineStageTopOfPipe {
		t.Errorf("toStages(StageNone) = %v", got)
	}
	got := toStages(rhi.StageTransfer | rhi.StageFragmentShader)
	if got != core1_0.PipelineStageTransfer|core1_0.PipelineStageFragmentShader {
		t.Errorf("toStages = %v", got)
	}
}

func TestToTimeout(t *testing.T) {
	cases := []struct {
		in, want time.Duration
	}{
		{rhi.Infinite, common.NoTimeout},
		{-time.Second, 0},
		{0, 0},
		{time.Millisecond, time.Millisecond},
	}
	for _, c := range cases {
		if got := toTimeout(c.in); got != c.want {
			t.Errorf("toTimeout(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSubresourceDefaults(t *testing.T) {
	layers := toSubresourceLayers(rhi.ImageSubresourceLayers{MipLevel: 2})
	if layers.AspectMask != core1_0.ImageAspectColor || layers.LayerCount != 1 || layers.MipLevel != 2 {
		t.Errorf("toSubresourceLayers = %+v", layers)
	}

	extent := toExtent3D(rhi.Extent3D{Width: 4, Height: 2})
	if extent != (core1_0.Extent3D{Width: 4, Height: 2, Depth: 1}) {
		t.Errorf("toExtent3D = %+v", extent)
	}
}

func TestBytesToBytecode(t *testing.T) {
	got := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	if len(got) != 2 || got[0] != 0x07230203 || got[1] != 1 {
		t.Errorf("bytesToBytecode = %#x", got)
	}
}
