package rhi

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestErrorCategories(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		category error
	}{
		{"invalid argument", InvalidArgumentf("CreateBuffer: size %d", 0), ErrInvalidArgument},
		{"invalid state", InvalidStatef("End: not recording"), ErrInvalidState},
		{"not implemented", NotImplementedf("depth resolve"), ErrNotImplemented},
		{"backend default", &BackendError{Op: "vkQueueSubmit", Code: -1, Status: "VK_ERROR_OUT_OF_HOST_MEMORY"}, ErrBackendFailure},
		{"backend device lost", &BackendError{Op: "vkQueueSubmit", Code: -4, Category: ErrDeviceLost}, ErrDeviceLost},
		{"wrapped backend", errors.Wrap(&BackendError{Op: "vkWaitForFences", Category: ErrTimeout}, "Wait"), ErrTimeout},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if !errors.Is(c.err, c.category) {
				t.Fatalf("%v does not match %v", c.err, c.category)
			}
		})
	}
}

func TestBackendErrorAs(t *testing.T) {
	err := errors.Wrap(&BackendError{Op: "vkCreateBuffer", Code: -2, Status: "VK_ERROR_OUT_OF_DEVICE_MEMORY"}, "CreateBuffer")

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatal("BackendError not found in chain")
	}
	if backendErr.Code != -2 {
		t.Errorf("Code = %d, want -2", backendErr.Code)
	}
	if got, want := backendErr.Error(), "vkCreateBuffer: VK_ERROR_OUT_OF_DEVICE_MEMORY (-2)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(errors.Wrap(ErrTimeout, "Wait")) {
		t.Error("timeout should be recoverable")
	}
	if !IsRecoverable(&BackendError{Category: ErrPresentationStale}) {
		t.Error("stale presentation should be recoverable")
	}
	if IsRecoverable(&BackendError{Category: ErrDeviceLost}) {
		t.Error("device loss should not be recoverable")
	}
	if IsRecoverable(InvalidArgumentf("x")) {
		t.Error("invalid argument should not be recoverable")
	}
}

func TestResultCode(t *testing.T) {
	cases := []struct {
		code     ResultCode
		stale    bool
		hasImage bool
	}{
		{ResultSuccess, false, true},
		{ResultSuboptimal, true, true},
		{ResultOutOfDate, true, false},
		{ResultSurfaceLost, true, false},
		{ResultDeviceLost, false, false},
		{ResultError, false, false},
	}
	for _, c := range cases {
		if c.code.Stale() != c.stale || c.code.HasImage() != c.hasImage {
			t.Errorf("%s: Stale=%v HasImage=%v", c.code, c.code.Stale(), c.code.HasImage())
		}
	}
}

func TestClearValues(t *testing.T) {
	if !IsColor(DefaultColorClear) || !IsColor(ClearColorUint{}) || !IsColor(ClearColorInt{}) {
		t.Error("colour clear values not reported as colour")
	}
	if IsColor(DefaultDepthClear) {
		t.Error("depth clear reported as colour")
	}
	if DefaultDepthClear.Depth != 1 {
		t.Errorf("default depth clear = %v, want 1", DefaultDepthClear.Depth)
	}
}

func TestSubresourceNormalized(t *testing.T) {
	r := ImageSubresourceRange{BaseMipLevel: 2}.Normalized()
	if r.Aspect != AspectColor || r.LevelCount != 1 || r.LayerCount != 1 || r.BaseMipLevel != 2 {
		t.Fatalf("Normalized() = %+v", r)
	}

	depth := ImageSubresourceRange{Aspect: AspectDepth, LevelCount: 4, LayerCount: 6}.Normalized()
	if depth.Aspect != AspectDepth || depth.LevelCount != 4 || depth.LayerCount != 6 {
		t.Fatalf("Normalized() changed explicit values: %+v", depth)
	}
}
