package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/sbt"
)

// VulkanShaderBindingTable is the uploaded table plus the strided regions
// CmdTraceRays consumes.
type VulkanShaderBindingTable struct {
	Buffer *VulkanBuffer
	Layout *sbt.Layout

	RaygenRegion   StridedDeviceAddressRegion
	MissRegion     StridedDeviceAddressRegion
	HitRegion      StridedDeviceAddressRegion
	CallableRegion StridedDeviceAddressRegion
}

// ShaderBindingTableCreate queries the group handles of the ray tracing
// pipeline, plans the table layout against the device's alignment rules and
// uploads the packed table into a device addressable buffer.
func ShaderBindingTableCreate(
	context *VulkanContext,
	pipeline vk.Pipeline,
	groupCount uint32,
	raygen sbt.Record,
	miss, hit []sbt.Record,
	recordBudget uint32,
) (*VulkanShaderBindingTable, error) {
	rt := &context.Device.RayTracing
	if !rt.Supported {
		return nil, fmt.Errorf("device has no ray tracing support: %w", core.ErrMissingCapability)
	}

	params := sbt.Params{
		HandleSize:      rt.ShaderGroupHandleSize,
		HandleAlignment: rt.ShaderGroupHandleAlignment,
		BaseAlignment:   rt.ShaderGroupBaseAlignment,
		MaxRecordSize:   recordBudget,
	}
	layout, err := sbt.Plan(params, raygen, miss, hit)
	if err != nil {
		return nil, err
	}

	handleData := make([]byte, int(groupCount)*int(rt.ShaderGroupHandleSize))
	if res := GetRayTracingShaderGroupHandlesKHR(
		context.Device.LogicalDevice,
		pipeline,
		0,
		groupCount,
		uint(len(handleData)),
		handleData); res != vk.Success {
		err := fmt.Errorf("failed to query shader group handles: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	handles := make([][]byte, groupCount)
	for i := range handles {
		start := i * int(rt.ShaderGroupHandleSize)
		handles[i] = handleData[start : start+int(rt.ShaderGroupHandleSize)]
	}

	table := make([]byte, layout.TotalSize)
	if err := layout.Write(table, handles); err != nil {
		return nil, err
	}

	buffer, err := BufferCreate(context, "shader binding table",
		vk.DeviceSize(layout.TotalSize),
		vk.BufferUsageFlags(vk.BufferUsageShaderBindingTableBit|vk.BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if err := buffer.Upload(context, 0, table); err != nil {
		buffer.Release(context)
		return nil, err
	}

	base, err := buffer.DeviceAddress(context)
	if err != nil {
		buffer.Release(context)
		return nil, err
	}

	region := func(r sbt.Region) StridedDeviceAddressRegion {
		return StridedDeviceAddressRegion{
			DeviceAddress: vk.DeviceAddress(base + r.Offset),
			Stride:        vk.DeviceSize(r.Stride),
			Size:          vk.DeviceSize(r.Size),
		}
	}
	result := &VulkanShaderBindingTable{
		Buffer:       buffer,
		Layout:       layout,
		RaygenRegion: region(layout.Raygen),
		MissRegion:   region(layout.Miss),
		HitRegion:    region(layout.Hit),
		// No callable shaders; the region stays zeroed.
	}
	core.LogInfo("Shader binding table uploaded (%d bytes, stride %d).",
		layout.TotalSize, layout.Miss.Stride)
	return result, nil
}

// Release frees the table buffer, used when shader hot reload replaces the
// pipeline the handles came from.
func (t *VulkanShaderBindingTable) Release(context *VulkanContext) error {
	return t.Buffer.Release(context)
}
