package vulkan

import (
	"encoding/binary"
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

/**
 * Acceleration structure construction. Both levels follow the same two-step
 * protocol: query the build sizes, allocate the backing and scratch buffers,
 * record the build into a single use command buffer and wait for the queue
 * to drain before the scratch buffer is released. Releasing scratch while
 * the build is still in flight is a device fault, which is why the build
 * goes through EndSingleUse and its QueueWaitIdle.
 */

const (
	// VkGeometryInstanceFlagBitsKHR
	geometryInstanceTriangleFacingCullDisable = 0x00000002

	instanceMaskAll = 0xff

	// sizeof(VkAccelerationStructureInstanceKHR)
	accelerationInstanceSize = 64
)

type VulkanAccelerationStructure struct {
	Handle        AccelerationStructure
	Buffer        *VulkanBuffer
	DeviceAddress uint64

	registryID uuid.UUID
}

// Release destroys the structure and its backing buffer out of order, used
// when a rebuilt top level structure supersedes the old one.
func (as *VulkanAccelerationStructure) Release(context *VulkanContext) error {
	if err := context.Registry.Release(as.registryID); err != nil {
		return err
	}
	return as.Buffer.Release(context)
}

// BuildBLAS builds a bottom level acceleration structure over one triangle
// geometry. Vertex and index data are referenced by device address; both
// buffers must have been created with the device address and the
// acceleration structure build input usages.
func BuildBLAS(
	context *VulkanContext,
	name string,
	vertexAddress uint64,
	vertexCount uint32,
	indexAddress uint64,
	triangleCount uint32,
) (*VulkanAccelerationStructure, error) {
	if triangleCount == 0 {
		return nil, fmt.Errorf("cannot build %q over zero triangles: %w", name, core.BuildErrorf("empty geometry"))
	}
	if primitiveCountExceedsLimit(triangleCount, context.Device.RayTracing.MaxPrimitiveCount) {
		return nil, fmt.Errorf("%q has %d triangles, device limit is %d: %w",
			name, triangleCount, context.Device.RayTracing.MaxPrimitiveCount, core.ErrGeometryTooLarge)
	}

	geometry := AccelerationStructureGeometry{
		SType:        vk.StructureTypeAccelerationStructureGeometry,
		GeometryType: GeometryTypeTriangles,
		Flags:        GeometryOpaqueBit,
		Geometry: AccelerationStructureGeometryData{
			Triangles: AccelerationStructureGeometryTrianglesData{
				SType:        vk.StructureTypeAccelerationStructureGeometryTrianglesData,
				VertexFormat: vk.FormatR32g32b32Sfloat,
				VertexData:   DeviceOrHostAddressConst{DeviceAddress: vk.DeviceAddress(vertexAddress)},
				VertexStride: 12,
				MaxVertex:    vertexCount - 1,
				IndexType:    vk.IndexTypeUint32,
				IndexData:    DeviceOrHostAddressConst{DeviceAddress: vk.DeviceAddress(indexAddress)},
			},
		},
	}

	return buildAccelerationStructure(
		context,
		name,
		AccelerationStructureTypeBottomLevel,
		geometry,
		triangleCount,
	)
}

// primitiveCountExceedsLimit reports whether a build would overflow the
// device's acceleration structure primitive limit. A zero limit means the
// limit is unknown and the build proceeds.
func primitiveCountExceedsLimit(count uint32, limit uint64) bool {
	return limit > 0 && uint64(count) > limit
}

// InstanceData packs one VkAccelerationStructureInstanceKHR: a row major
// 3x4 transform, a custom index with the all-enabled mask, the hit record
// offset and the referenced bottom level address. Facing culling is
// disabled so winding does not hide geometry.
func InstanceData(transform [12]float32, customIndex uint32, hitRecordOffset uint32, blasAddress uint64) []byte {
	raw := make([]byte, accelerationInstanceSize)
	for i, f := range transform {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(raw[48:], customIndex&0x00ffffff|uint32(instanceMaskAll)<<24)
	binary.LittleEndian.PutUint32(raw[52:], hitRecordOffset&0x00ffffff|uint32(geometryInstanceTriangleFacingCullDisable)<<24)
	binary.LittleEndian.PutUint64(raw[56:], blasAddress)
	return raw
}

// BuildTLAS builds a top level structure over the packed instances. The
// instance buffer is created host visible, filled and released once the
// build has drained.
func BuildTLAS(context *VulkanContext, name string, instances [][]byte) (*VulkanAccelerationStructure, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("cannot build %q over zero instances: %w", name, core.BuildErrorf("empty instance list"))
	}

	packed := make([]byte, 0, len(instances)*accelerationInstanceSize)
	for i, instance := range instances {
		if len(instance) != accelerationInstanceSize {
			return nil, fmt.Errorf("instance %d is %d bytes, expected %d: %w",
				i, len(instance), accelerationInstanceSize, core.ErrInvalidUsage)
		}
		packed = append(packed, instance...)
	}

	instanceBuffer, err := BufferCreate(context, name+" instances",
		vk.DeviceSize(len(packed)),
		vk.BufferUsageFlags(vk.BufferUsageAccelerationStructureBuildInputReadOnlyBit|vk.BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer instanceBuffer.Release(context)

	if err := instanceBuffer.Upload(context, 0, packed); err != nil {
		return nil, err
	}
	instanceAddress, err := instanceBuffer.DeviceAddress(context)
	if err != nil {
		return nil, err
	}

	geometry := AccelerationStructureGeometry{
		SType:        vk.StructureTypeAccelerationStructureGeometry,
		GeometryType: GeometryTypeInstances,
		Geometry: AccelerationStructureGeometryData{
			Instances: AccelerationStructureGeometryInstancesData{
				SType: vk.StructureTypeAccelerationStructureGeometryInstancesData,
				Data:  DeviceOrHostAddressConst{DeviceAddress: vk.DeviceAddress(instanceAddress)},
			},
		},
	}

	return buildAccelerationStructure(
		context,
		name,
		AccelerationStructureTypeTopLevel,
		geometry,
		uint32(len(instances)),
	)
}

func buildAccelerationStructure(
	context *VulkanContext,
	name string,
	asType AccelerationStructureType,
	geometry AccelerationStructureGeometry,
	primitiveCount uint32,
) (*VulkanAccelerationStructure, error) {
	buildInfo := AccelerationStructureBuildGeometryInfo{
		SType:         vk.StructureTypeAccelerationStructureBuildGeometryInfo,
		Type:          asType,
		Flags:         BuildAccelerationStructurePreferFastTraceBit,
		Mode:          BuildAccelerationStructureModeBuild,
		GeometryCount: 1,
		PGeometries:   []AccelerationStructureGeometry{geometry},
	}

	// Step one: ask the driver how large the structure and its scratch
	// space need to be for this geometry.
	var sizeInfo AccelerationStructureBuildSizesInfo
	sizeInfo.SType = vk.StructureTypeAccelerationStructureBuildSizesInfo
	GetAccelerationStructureBuildSizesKHR(
		context.Device.LogicalDevice,
		AccelerationStructureBuildTypeDevice,
		&buildInfo,
		[]uint32{primitiveCount},
		&sizeInfo)

	if sizeInfo.AccelerationStructureSize == 0 {
		return nil, core.BuildErrorf("driver reported zero size for %q", name)
	}

	as := &VulkanAccelerationStructure{}
	buffer, err := BufferCreate(context, name,
		sizeInfo.AccelerationStructureSize,
		vk.BufferUsageFlags(vk.BufferUsageAccelerationStructureStorageBit|vk.BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	as.Buffer = buffer

	createInfo := AccelerationStructureCreateInfo{
		SType:  vk.StructureTypeAccelerationStructureCreateInfo,
		Buffer: buffer.Handle,
		Size:   sizeInfo.AccelerationStructureSize,
		Type:   asType,
	}
	if res := CreateAccelerationStructureKHR(context.Device.LogicalDevice, &createInfo, context.Allocator, &as.Handle); res != vk.Success {
		err := fmt.Errorf("failed to create acceleration structure %q: %s: %w",
			name, VulkanResultString(res), core.ErrBuildFailed)
		core.LogError(err.Error())
		return nil, err
	}
	id, err := context.Registry.Track("acceleration_structure", name, func() {
		DestroyAccelerationStructureKHR(context.Device.LogicalDevice, as.Handle, context.Allocator)
	})
	if err != nil {
		return nil, err
	}
	as.registryID = id

	// Step two: allocate scratch, record the build and wait for it.
	scratch, err := BufferCreate(context, name+" scratch",
		sizeInfo.BuildScratchSize,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageShaderDeviceAddressBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	defer scratch.Release(context)

	scratchAddress, err := scratch.DeviceAddress(context)
	if err != nil {
		return nil, err
	}
	buildInfo.DstAccelerationStructure = as.Handle
	buildInfo.ScratchData = DeviceOrHostAddress{DeviceAddress: vk.DeviceAddress(scratchAddress)}

	rangeInfo := AccelerationStructureBuildRangeInfo{
		PrimitiveCount: primitiveCount,
	}

	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return nil, err
	}
	CmdBuildAccelerationStructuresKHR(
		cb.Handle,
		1,
		[]AccelerationStructureBuildGeometryInfo{buildInfo},
		[][]AccelerationStructureBuildRangeInfo{{rangeInfo}})

	// EndSingleUse waits for the queue to go idle; the deferred scratch
	// release must not run before the build retires.
	if err := cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		return nil, fmt.Errorf("acceleration structure build for %q did not complete: %w", name, core.ErrBuildFailed)
	}

	addressInfo := AccelerationStructureDeviceAddressInfo{
		SType:                 vk.StructureTypeAccelerationStructureDeviceAddressInfo,
		AccelerationStructure: as.Handle,
	}
	as.DeviceAddress = uint64(GetAccelerationStructureDeviceAddressKHR(context.Device.LogicalDevice, &addressInfo))

	core.LogInfo("Built %s (%d primitives, %d bytes).", name, primitiveCount, sizeInfo.AccelerationStructureSize)
	return as, nil
}
