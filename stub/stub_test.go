package stub

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/rhi"
)

func TestStubsRegistered(t *testing.T) {
	available := make(map[rhi.DriverKind]bool)
	for _, kind := range rhi.Available() {
		available[kind] = true
	}

	for _, kind := range Kinds {
		if !available[kind] {
			t.Errorf("%s is not registered", kind)
			continue
		}
		driver, err := rhi.NewDriver(rhi.DriverDescription{Kind: kind, ApplicationName: "stub test"})
		if driver != nil || !errors.Is(err, rhi.ErrNotImplemented) {
			t.Errorf("NewDriver(%s) = %v, %v, want ErrNotImplemented", kind, driver, err)
		}
	}
}

func TestVulkanNotClaimed(t *testing.T) {
	for _, kind := range Kinds {
		if kind == rhi.DriverVulkan {
			t.Fatal("stub registers the Vulkan backend")
		}
	}
}
