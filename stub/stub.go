// Package stub registers the backends rhi names but does not implement.
// Importing it makes rhi.NewDriver fail with ErrNotImplemented for those
// kinds instead of ErrBackendNotAvailable.
package stub

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/rhi"
)

// Kinds lists the driver kinds this package registers.
var Kinds = []rhi.DriverKind{
	rhi.DriverDirect3D12,
	rhi.DriverMetal,
	rhi.DriverOpenGL,
	rhi.DriverOpenGLES,
	rhi.DriverSoftware,
}

func init() {
	for _, kind := range Kinds {
		rhi.Register(kind, factory(kind))
	}
}

func factory(kind rhi.DriverKind) rhi.DriverFactory {
	return func(desc rhi.DriverDescription) (rhi.Driver, error) {
		return nil, errors.Wrapf(rhi.ErrNotImplemented, "NewDriver: %s backend", kind)
	}
}
