// Package vulkan is the Vulkan backend of rhi. Importing it registers the
// backend for rhi.DriverVulkan.
//
// Vulkan 1.0 core objects back every rhi handle. Timeline semaphores come
// from Vulkan 1.2, and BeginRendering is emulated with cached render passes
// and framebuffers.
package vulkan

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/rhi"
	"golang.org/x/exp/slog"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

const engineName = "rhi"

func init() {
	rhi.Register(rhi.DriverVulkan, func(desc rhi.DriverDescription) (rhi.Driver, error) {
		driver, err := NewDriver(desc)
		if err != nil {
			return nil, err
		}
		return driver, nil
	})
}

// Driver owns the Vulkan instance.
type Driver struct {
	loader     core.Loader
	instance   core1_0.Instance
	messenger  ext_debug_utils.DebugUtilsMessenger
	surfaceExt khr_surface.Extension
	validation bool
	once       sync.Once
}

func newLoader(procAddr unsafe.Pointer) (core.Loader, error) {
	if procAddr != nil {
		return core.CreateLoaderFromProcAddr(procAddr)
	}
	return core.CreateSystemLoader()
}

// NewDriver creates a Vulkan 1.2 instance. Most callers go through
// rhi.NewDriver instead.
func NewDriver(desc rhi.DriverDescription) (*Driver, error) {
	if desc.Kind != rhi.DriverVulkan {
		return nil, rhi.InvalidArgumentf("NewDriver: kind %s is not Vulkan", desc.Kind)
	}

	loader, err := newLoader(desc.InstanceProcAddr)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, rhi.ErrBackendNotAvailable), "NewDriver: Vulkan loader")
	}

	d := &Driver{loader: loader, validation: desc.EnableValidation}
	if err := d.createInstance(desc); err != nil {
		return nil, err
	}

	if desc.EnableValidation {
		if err := d.setupDebugMessenger(); err != nil {
			d.instance.Destroy(nil)
			return nil, err
		}
	}
	return d, nil
}

func (d *Driver) createInstance(desc rhi.DriverDescription) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    desc.ApplicationName,
		ApplicationVersion: toVersion(desc.ApplicationVersion),
		EngineName:         engineName,
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := d.loader.AvailableExtensions()
	if err != nil {
		return errors.Wrap(errors.Mark(err, rhi.ErrBackendNotAvailable), "NewDriver: enumerate instance extensions")
	}

	for _, ext := range desc.InstanceExtensions {
		if _, hasExt := extensions[ext]; !hasExt {
			return errors.Wrapf(rhi.ErrBackendNotAvailable, "NewDriver: missing instance extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if desc.EnableValidation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	// Portability drivers such as MoltenVK are hidden unless asked for
	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if desc.EnableValidation {
		layers, _, err := d.loader.AvailableLayers()
		if err != nil {
			return errors.Wrap(errors.Mark(err, rhi.ErrBackendNotAvailable), "NewDriver: enumerate layers")
		}
		if _, hasValidation := layers[validationLayer]; !hasValidation {
			return errors.Wrapf(rhi.ErrBackendNotAvailable,
				"NewDriver: validation layer %s not available, install the Vulkan SDK", validationLayer)
		}
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, validationLayer)

		// Catches messages from instance creation itself
		instanceOptions.Next = d.debugMessengerOptions()
	}

	instance, res, err := d.loader.CreateInstance(nil, instanceOptions)
	if err != nil {
		return check("CreateInstance", res, err)
	}
	d.instance = instance

	for _, ext := range instanceOptions.EnabledExtensionNames {
		if ext == khr_surface.ExtensionName {
			d.surfaceExt = khr_surface.CreateExtensionFromInstance(instance)
		}
	}

	rhi.Logger().Debug("vulkan instance created", slog.Any("extensions", instanceOptions.EnabledExtensionNames),
		slog.Bool("validation", desc.EnableValidation))
	return nil
}

func (d *Driver) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logMessage,
	}
}

func (d *Driver) setupDebugMessenger() error {
	debugLoader := ext_debug_utils.CreateExtensionFromInstance(d.instance)
	messenger, res, err := debugLoader.CreateDebugUtilsMessenger(d.instance, nil, d.debugMessengerOptions())
	if err != nil {
		return check("CreateDebugUtilsMessenger", res, err)
	}
	d.messenger = messenger
	return nil
}

// logMessage routes validation output to the rhi logger.
func logMessage(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	logger := rhi.Logger()
	attr := slog.String("type", msgType.String())
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		logger.Error(data.Message, attr)
	case severity&ext_debug_utils.SeverityWarning != 0:
		logger.Warn(data.Message, attr)
	default:
		logger.Debug(data.Message, attr)
	}
	return false
}

func (d *Driver) Kind() rhi.DriverKind { return rhi.DriverVulkan }
func (d *Driver) NativeHandle() any    { return d.instance }

func (d *Driver) CreateDevice(desc rhi.DeviceDescription) (rhi.Device, error) {
	device, err := newDevice(d, desc)
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (d *Driver) CreateSurface(desc rhi.SurfaceDescription) (rhi.Surface, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	surface, err := d.nativeSurface("CreateSurface", desc.Window)
	if err != nil {
		return nil, err
	}
	return &Surface{driver: d, handle: surface, window: desc.Window}, nil
}

// Destroy destroys the instance. Every object created from it must be
// destroyed first.
func (d *Driver) Destroy() {
	d.once.Do(func() {
		if d.messenger != nil {
			d.messenger.Destroy(nil)
		}
		d.instance.Destroy(nil)
		rhi.Logger().Debug("vulkan instance destroyed")
	})
}
