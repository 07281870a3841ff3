// Package rhi is a thin render hardware interface over explicit graphics
// APIs.
//
// A Driver is obtained from NewDriver for one of the registered backends.
// It yields PhysicalDevices and Surfaces, and a Device built from a
// PhysicalDevice creates every other GPU object: memory, resources,
// pipelines, descriptors, command pools, swapchains and synchronization
// primitives. Nothing is synchronized implicitly; callers order work with
// Barrier, semaphores and fences.
//
// Import a backend for its side effects to register it:
//
//	import _ "github.com/vkngwrapper/rhi/vulkan"
//
//	driver, err := rhi.NewDriver(rhi.DriverDescription{
//		Kind:            rhi.DriverVulkan,
//		ApplicationName: "example",
//	})
//
// Every error wraps one of the Err* categories; test for them with
// errors.Is.
package rhi
