package vulkan

import (
	"testing"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/rhi"
)

func TestCommandBufferUsage(t *testing.T) {
	cases := []struct {
		usage rhi.CommandBufferUsage
		want  core1_0.CommandBufferUsageFlags
	}{
		{0, 0},
		{rhi.UsageOneTimeSubmit, core1_0.CommandBufferUsageOneTimeSubmit},
		{rhi.UsageMultipleSubmit, core1_0.CommandBufferUsageSimultaneousUse},
		{rhi.UsageRenderPassContinue | rhi.UsageOneTimeSubmit,
			core1_0.CommandBufferUsageRenderPassContinue | core1_0.CommandBufferUsageOneTimeSubmit},
	}
	for _, c := range cases {
		if got := commandBufferUsage(c.usage); got != c.want {
			t.Errorf("commandBufferUsage(%d) = %v, want %v", c.usage, got, c.want)
		}
	}
}

func TestBarrierStages(t *testing.T) {
	cases := []struct {
		src, dst         rhi.PipelineStage
		wantSrc, wantDst rhi.PipelineStage
	}{
		{rhi.StageNone, rhi.StageNone, rhi.StageTopOfPipe, rhi.StageBottomOfPipe},
		{rhi.StageNone, rhi.StageTransfer, rhi.StageTopOfPipe, rhi.StageTransfer},
		{rhi.StageTransfer, rhi.StageNone, rhi.StageTransfer, rhi.StageBottomOfPipe},
		{rhi.StageTransfer, rhi.StageVertexInput, rhi.StageTransfer, rhi.StageVertexInput},
	}
	for _, c := range cases {
		src, dst := barrierStages(c.src, c.dst)
		if src != c.wantSrc || dst != c.wantDst {
			t.Errorf("barrierStages(%d, %d) = %d, %d, want %d, %d", c.src, c.dst, src, dst, c.wantSrc, c.wantDst)
		}
	}
}
