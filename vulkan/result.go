package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/core/core1_1"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	"github.com/vkngwrapper/rhi"
)

func category(res common.VkResult) error {
	switch res {
	case core1_0.VKErrorDeviceLost:
		return rhi.ErrDeviceLost
	case core1_0.VKTimeout, core1_0.VKNotReady:
		return rhi.ErrTimeout
	case khr_swapchain.VKSuboptimal, khr_swapchain.VKErrorOutOfDate, khr_surface.VKErrorSurfaceLost:
		return rhi.ErrPresentationStale
	case core1_1.VKErrorOutOfPoolMemory, core1_0.VKErrorFragmentedPool:
		return rhi.ErrOutOfPoolMemory
	}
	return rhi.ErrBackendFailure
}

// check converts the result of a native call into a categorized error.
// Non-error status codes such as VK_TIMEOUT are not failures here; callers
// that care about them use statusError.
func check(op string, res common.VkResult, err error) error {
	if err == nil {
		return nil
	}
	if res == core1_0.VKSuccess {
		return errors.Wrapf(errors.Mark(err, rhi.ErrBackendFailure), "%s", op)
	}
	return statusError(op, res)
}

func statusError(op string, res common.VkResult) error {
	return &rhi.BackendError{
		Op:       op,
		Code:     int(res),
		Status:   res.String(),
		Category: category(res),
	}
}

// resultCode classifies an acquire or present status.
func resultCode(res common.VkResult) rhi.ResultCode {
	switch res {
	case core1_0.VKSuccess:
		return rhi.ResultSuccess
	case khr_swapchain.VKSuboptimal:
		return rhi.ResultSuboptimal
	case khr_swapchain.VKErrorOutOfDate:
		return rhi.ResultOutOfDate
	case khr_surface.VKErrorSurfaceLost:
		return rhi.ResultSurfaceLost
	case core1_0.VKErrorDeviceLost:
		return rhi.ResultDeviceLost
	}
	return rhi.ResultError
}

// presentationError is nil for ResultSuccess.
func presentationError(op string, res common.VkResult, err error) error {
	if res == core1_0.VKSuccess {
		if err != nil {
			return check(op, res, err)
		}
		return nil
	}
	return statusError(op, res)
}
