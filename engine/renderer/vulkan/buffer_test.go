package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestNeedsDeviceZeroInit(t *testing.T) {
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

	cases := []struct {
		name       string
		usage      vk.BufferUsageFlags
		properties vk.MemoryPropertyFlags
		want       bool
	}{
		{
			name:       "device local acceleration structure storage",
			usage:      vk.BufferUsageFlags(vk.BufferUsageAccelerationStructureStorageBit | vk.BufferUsageShaderDeviceAddressBit),
			properties: deviceLocal,
			want:       true,
		},
		{
			name:       "device local shader binding table",
			usage:      vk.BufferUsageFlags(vk.BufferUsageShaderBindingTableBit),
			properties: deviceLocal,
			want:       true,
		},
		{
			// Host visible memory is zeroed through a mapped write instead.
			name:       "host visible shader binding table",
			usage:      vk.BufferUsageFlags(vk.BufferUsageShaderBindingTableBit),
			properties: hostVisible,
			want:       false,
		},
		{
			// Vertex data is always fully uploaded before use.
			name:       "device local vertex buffer",
			usage:      vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit | vk.BufferUsageTransferDstBit),
			properties: deviceLocal,
			want:       false,
		},
		{
			name:       "device local scratch",
			usage:      vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit | vk.BufferUsageShaderDeviceAddressBit),
			properties: deviceLocal,
			want:       false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := needsDeviceZeroInit(tc.usage, tc.properties); got != tc.want {
				t.Errorf("needsDeviceZeroInit = %t, want %t", got, tc.want)
			}
		})
	}
}
