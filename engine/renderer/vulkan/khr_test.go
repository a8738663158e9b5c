package vulkan

import (
	"testing"
	"unsafe"
)

// The driver reads these two structs without any conversion step, so their
// layout must match the C declarations byte for byte.

func TestWriteDescriptorSetAccelerationStructureLayout(t *testing.T) {
	var w WriteDescriptorSetAccelerationStructure
	if got := unsafe.Sizeof(w); got != 32 {
		t.Errorf("size = %d, want 32", got)
	}
	if got := unsafe.Offsetof(w.PNext); got != 8 {
		t.Errorf("PNext offset = %d, want 8", got)
	}
	if got := unsafe.Offsetof(w.AccelerationStructureCount); got != 16 {
		t.Errorf("AccelerationStructureCount offset = %d, want 16", got)
	}
	if got := unsafe.Offsetof(w.PAccelerationStructures); got != 24 {
		t.Errorf("PAccelerationStructures offset = %d, want 24", got)
	}
}

func TestStridedDeviceAddressRegionLayout(t *testing.T) {
	var r StridedDeviceAddressRegion
	if got := unsafe.Sizeof(r); got != 24 {
		t.Errorf("size = %d, want 24", got)
	}
	if got := unsafe.Offsetof(r.Stride); got != 8 {
		t.Errorf("Stride offset = %d, want 8", got)
	}
	if got := unsafe.Offsetof(r.Size); got != 16 {
		t.Errorf("Size offset = %d, want 16", got)
	}
}

func TestAccelerationStructureHandleWidth(t *testing.T) {
	if got := unsafe.Sizeof(AccelerationStructure(0)); got != 8 {
		t.Errorf("handle size = %d, want 8", got)
	}
}
