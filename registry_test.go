package rhi

import (
	"testing"

	"github.com/cockroachdb/errors"
)

type fakeDriver struct {
	Driver
	kind DriverKind
}

func (d *fakeDriver) Kind() DriverKind { return d.kind }

func TestRegistry(t *testing.T) {
	const kind = DriverSoftware
	defer Unregister(kind)

	var seen DriverDescription
	Register(kind, func(desc DriverDescription) (Driver, error) {
		seen = desc
		return &fakeDriver{kind: kind}, nil
	})

	found := false
	for _, k := range Available() {
		if k == kind {
			found = true
		}
	}
	if !found {
		t.Fatalf("Available() = %v, missing %s", Available(), kind)
	}

	driver, err := NewDriver(DriverDescription{Kind: kind, ApplicationName: "registry"})
	if err != nil {
		t.Fatalf("NewDriver: %+v", err)
	}
	if driver.Kind() != kind || seen.ApplicationName != "registry" {
		t.Fatalf("factory received %+v, driver kind %s", seen, driver.Kind())
	}

	Unregister(kind)
	_, err = NewDriver(DriverDescription{Kind: kind, ApplicationName: "registry"})
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Fatalf("NewDriver after Unregister: %v", err)
	}
}

func TestNewDriverRequiresName(t *testing.T) {
	_, err := NewDriver(DriverDescription{Kind: DriverVulkan})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("NewDriver without a name: %v", err)
	}
}

func TestNewDriverPropagatesFactoryError(t *testing.T) {
	const kind = DriverMetal
	defer Unregister(kind)

	Register(kind, func(DriverDescription) (Driver, error) {
		return nil, NotImplementedf("metal")
	})
	_, err := NewDriver(DriverDescription{Kind: kind, ApplicationName: "x"})
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("factory error lost: %v", err)
	}
}

func TestDriverKindString(t *testing.T) {
	if DriverVulkan.String() != "Vulkan" {
		t.Errorf("DriverVulkan.String() = %q", DriverVulkan.String())
	}
	if v := (Version{1, 2, 3}).String(); v != "1.2.3" {
		t.Errorf("Version.String() = %q", v)
	}
}
