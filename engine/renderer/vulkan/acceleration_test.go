package vulkan

import (
	"encoding/binary"
	"math"
	"testing"
)

func identityTransform() [12]float32 {
	return [12]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
}

func TestInstanceDataLayout(t *testing.T) {
	raw := InstanceData(identityTransform(), 7, 1, 0xdeadbeefcafe)
	if len(raw) != accelerationInstanceSize {
		t.Fatalf("len = %d, want %d", len(raw), accelerationInstanceSize)
	}

	for i, want := range identityTransform() {
		got := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		if got != want {
			t.Errorf("transform[%d] = %f, want %f", i, got, want)
		}
	}

	indexAndMask := binary.LittleEndian.Uint32(raw[48:])
	if indexAndMask&0x00ffffff != 7 {
		t.Errorf("custom index = %d, want 7", indexAndMask&0x00ffffff)
	}
	if indexAndMask>>24 != instanceMaskAll {
		t.Errorf("mask = %#x, want %#x", indexAndMask>>24, instanceMaskAll)
	}

	offsetAndFlags := binary.LittleEndian.Uint32(raw[52:])
	if offsetAndFlags&0x00ffffff != 1 {
		t.Errorf("hit record offset = %d, want 1", offsetAndFlags&0x00ffffff)
	}
	if offsetAndFlags>>24 != geometryInstanceTriangleFacingCullDisable {
		t.Errorf("flags = %#x, want %#x", offsetAndFlags>>24, geometryInstanceTriangleFacingCullDisable)
	}

	if got := binary.LittleEndian.Uint64(raw[56:]); got != 0xdeadbeefcafe {
		t.Errorf("blas address = %#x, want %#x", got, uint64(0xdeadbeefcafe))
	}
}

func TestPrimitiveCountExceedsLimit(t *testing.T) {
	cases := []struct {
		name  string
		count uint32
		limit uint64
		want  bool
	}{
		{"under limit", 100, 1 << 20, false},
		{"at limit", 1 << 20, 1 << 20, false},
		{"over limit", (1 << 20) + 1, 1 << 20, true},
		// A driver reporting no limit must never reject a build.
		{"unknown limit", ^uint32(0), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := primitiveCountExceedsLimit(tc.count, tc.limit); got != tc.want {
				t.Errorf("primitiveCountExceedsLimit(%d, %d) = %t, want %t", tc.count, tc.limit, got, tc.want)
			}
		})
	}
}

func TestInstanceDataTruncatesWideValues(t *testing.T) {
	raw := InstanceData(identityTransform(), 0xffffffff, 0xffffffff, 0)

	if got := binary.LittleEndian.Uint32(raw[48:]) & 0x00ffffff; got != 0x00ffffff {
		t.Errorf("custom index = %#x, want %#x", got, 0x00ffffff)
	}
	// The top byte must stay reserved for the mask and the flags.
	if got := binary.LittleEndian.Uint32(raw[48:]) >> 24; got != instanceMaskAll {
		t.Errorf("mask overwritten: %#x", got)
	}
	if got := binary.LittleEndian.Uint32(raw[52:]) >> 24; got != geometryInstanceTriangleFacingCullDisable {
		t.Errorf("flags overwritten: %#x", got)
	}
}
