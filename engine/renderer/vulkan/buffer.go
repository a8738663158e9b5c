package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize

	usage      vk.BufferUsageFlags
	properties vk.MemoryPropertyFlags
	registryID uuid.UUID
}

// BufferCreate allocates a buffer and binds fresh device memory to it. Host
// visible memory is zeroed through a mapped write. Device local acceleration
// structure and shader binding table storage must not expose stale bytes to
// the driver either, so those are cleared with a fill on the transfer queue;
// other device local buffers are zeroed by their first upload.
func BufferCreate(
	context *VulkanContext,
	name string,
	size vk.DeviceSize,
	usage vk.BufferUsageFlags,
	properties vk.MemoryPropertyFlags,
) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("buffer %q has zero size: %w", name, core.ErrInvalidUsage)
	}
	// vkCmdFillBuffer requires the transfer destination usage.
	if needsDeviceZeroInit(usage, properties) {
		usage |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}

	buffer := &VulkanBuffer{
		Size:       size,
		usage:      usage,
		properties: properties,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer.Handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(properties))
	if memoryIndex < 0 {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		err := fmt.Errorf("no suitable memory type for buffer %q: %w", name, core.ErrOutOfDeviceMemory)
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	// Buffers queried for a device address need the allocation flagged too.
	if usage&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) != 0 {
		flagsInfo := vk.MemoryAllocateFlagsInfo{
			SType: vk.StructureTypeMemoryAllocateFlagsInfo,
			Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
		}
		allocateInfo.PNext = unsafe.Pointer(&flagsInfo)
	}

	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &buffer.Memory); res != vk.Success {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		err := fmt.Errorf("failed to allocate %d bytes for buffer %q: %s: %w",
			size, name, VulkanResultString(res), core.ErrOutOfDeviceMemory)
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		vk.FreeMemory(context.Device.LogicalDevice, buffer.Memory, context.Allocator)
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		err := fmt.Errorf("failed to bind memory for buffer %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		if err := buffer.zero(context); err != nil {
			buffer.destroy(context)
			return nil, err
		}
	} else if needsDeviceZeroInit(usage, properties) {
		if err := buffer.fillZero(context); err != nil {
			buffer.destroy(context)
			return nil, err
		}
	}

	id, err := context.Registry.Track("buffer", name, func() {
		buffer.destroy(context)
	})
	if err != nil {
		buffer.destroy(context)
		return nil, err
	}
	buffer.registryID = id
	return buffer, nil
}

func (b *VulkanBuffer) destroy(context *VulkanContext) {
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
}

// Release destroys the buffer ahead of shutdown, through the registry so the
// entry cannot run twice.
func (b *VulkanBuffer) Release(context *VulkanContext) error {
	return context.Registry.Release(b.registryID)
}

// needsDeviceZeroInit reports whether a device local buffer must be cleared
// before the driver can see it. Acceleration structure storage and shader
// binding tables are consumed without a prior full-range upload.
func needsDeviceZeroInit(usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) bool {
	if properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		return false
	}
	clearWorthy := vk.BufferUsageFlags(
		vk.BufferUsageAccelerationStructureStorageBit | vk.BufferUsageShaderBindingTableBit)
	return usage&clearWorthy != 0
}

// fillZero clears the whole buffer with vkCmdFillBuffer and waits for the
// queue to drain, mirroring what zero does for host visible memory.
func (b *VulkanBuffer) fillZero(context *VulkanContext) error {
	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	vk.CmdFillBuffer(cb.Handle, b.Handle, 0, vk.DeviceSize(vk.WholeSize), 0)
	return cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue)
}

func (b *VulkanBuffer) zero(context *VulkanContext) error {
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, b.Size, 0, &data); res != vk.Success {
		return fmt.Errorf("failed to map buffer for zeroing: %s", VulkanResultString(res))
	}
	dst := unsafe.Slice((*byte)(data), b.Size)
	for i := range dst {
		dst[i] = 0
	}
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	return nil
}

// Upload copies raw into the buffer at offset. The buffer must be host
// visible; device local uploads go through a staging buffer and
// BufferCopyTo.
func (b *VulkanBuffer) Upload(context *VulkanContext, offset vk.DeviceSize, raw []byte) error {
	if b.properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		return fmt.Errorf("buffer memory is not host visible: %w", core.ErrInvalidUsage)
	}
	if offset+vk.DeviceSize(len(raw)) > b.Size {
		return fmt.Errorf("upload of %d bytes at offset %d exceeds buffer size %d: %w",
			len(raw), offset, b.Size, core.ErrInvalidUsage)
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, offset, vk.DeviceSize(len(raw)), 0, &data); res != vk.Success {
		return fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res))
	}
	vk.Memcopy(data, raw)
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	return nil
}

// DeviceAddress returns the buffer's GPU virtual address. The buffer must
// have been created with the shader device address usage.
func (b *VulkanBuffer) DeviceAddress(context *VulkanContext) (uint64, error) {
	if b.usage&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) == 0 {
		return 0, fmt.Errorf("buffer was not created with device address usage: %w", core.ErrInvalidUsage)
	}
	info := BufferDeviceAddressInfo{
		SType:  vk.StructureTypeBufferDeviceAddressInfo,
		Buffer: b.Handle,
	}
	address := GetBufferDeviceAddress(context.Device.LogicalDevice, &info)
	if address == 0 {
		return 0, fmt.Errorf("driver returned a null device address: %w", core.ErrInvalidUsage)
	}
	return uint64(address), nil
}

// BufferCopyTo records nothing itself: it allocates a single use command
// buffer, copies src into dst and blocks until the transfer queue is idle.
func BufferCopyTo(context *VulkanContext, src, dst *VulkanBuffer, size vk.DeviceSize) error {
	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	region := vk.BufferCopy{Size: size}
	vk.CmdCopyBuffer(cb.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{region})
	return cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue)
}

// UploadThroughStaging creates a host visible staging buffer, fills it and
// copies it into dst. The staging buffer is released immediately after the
// copy completes.
func UploadThroughStaging(context *VulkanContext, dst *VulkanBuffer, raw []byte) error {
	staging, err := BufferCreate(context, "staging",
		vk.DeviceSize(len(raw)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	defer staging.Release(context)

	if err := staging.Upload(context, 0, raw); err != nil {
		return err
	}
	return BufferCopyTo(context, staging, dst, vk.DeviceSize(len(raw)))
}
