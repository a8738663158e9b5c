package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

/**
 * Go-side declarations for the VK_KHR_acceleration_structure and
 * VK_KHR_ray_tracing_pipeline extensions. The binding we use covers core
 * Vulkan plus the extension enums, but not the extension entry points or
 * struct types, so those live here and in the cgo shim next door (khr.go).
 *
 * Structs that carry slices or unions are plain Go structs; the shim
 * converts them to their C counterparts per call. Structs the driver reads
 * through a PNext chain (WriteDescriptorSetAccelerationStructure) mirror
 * the C layout field for field and must not be reordered.
 */

// Non-dispatchable extension handles. 64 bits on every platform we build
// for, matching VK_DEFINE_NON_DISPATCHABLE_HANDLE.
type (
	AccelerationStructure uint64
	DeferredOperation     uint64
)

const (
	NullAccelerationStructure AccelerationStructure = 0
	NullDeferredOperation     DeferredOperation     = 0
)

// VkGeometryTypeKHR
type GeometryType uint32

const (
	GeometryTypeTriangles GeometryType = 0
	GeometryTypeAabbs     GeometryType = 1
	GeometryTypeInstances GeometryType = 2
)

// VkAccelerationStructureTypeKHR
type AccelerationStructureType uint32

const (
	AccelerationStructureTypeTopLevel    AccelerationStructureType = 0
	AccelerationStructureTypeBottomLevel AccelerationStructureType = 1
	AccelerationStructureTypeGeneric     AccelerationStructureType = 2
)

// VkBuildAccelerationStructureModeKHR
type BuildAccelerationStructureMode uint32

const (
	BuildAccelerationStructureModeBuild  BuildAccelerationStructureMode = 0
	BuildAccelerationStructureModeUpdate BuildAccelerationStructureMode = 1
)

// VkAccelerationStructureBuildTypeKHR
type AccelerationStructureBuildType uint32

const (
	AccelerationStructureBuildTypeHost   AccelerationStructureBuildType = 0
	AccelerationStructureBuildTypeDevice AccelerationStructureBuildType = 1
)

// VkGeometryFlagBitsKHR
type GeometryFlags uint32

const GeometryOpaqueBit GeometryFlags = 0x00000001

// VkBuildAccelerationStructureFlagBitsKHR
type BuildAccelerationStructureFlags uint32

const (
	BuildAccelerationStructureAllowUpdateBit     BuildAccelerationStructureFlags = 0x00000001
	BuildAccelerationStructureAllowCompactionBit BuildAccelerationStructureFlags = 0x00000002
	BuildAccelerationStructurePreferFastTraceBit BuildAccelerationStructureFlags = 0x00000004
	BuildAccelerationStructurePreferFastBuildBit BuildAccelerationStructureFlags = 0x00000008
)

// VkRayTracingShaderGroupTypeKHR
type RayTracingShaderGroupType uint32

const (
	RayTracingShaderGroupTypeGeneral           RayTracingShaderGroupType = 0
	RayTracingShaderGroupTypeTrianglesHitGroup RayTracingShaderGroupType = 1
)

// VK_SHADER_UNUSED_KHR
const ShaderUnusedKhr = ^uint32(0)

// VkDeviceOrHostAddressKHR and its const sibling. The union's host pointer
// arm is never used; every build in this codebase runs on the device.
type DeviceOrHostAddress struct {
	DeviceAddress vk.DeviceAddress
}

type DeviceOrHostAddressConst struct {
	DeviceAddress vk.DeviceAddress
}

type AccelerationStructureGeometryTrianglesData struct {
	SType         vk.StructureType
	VertexFormat  vk.Format
	VertexData    DeviceOrHostAddressConst
	VertexStride  vk.DeviceSize
	MaxVertex     uint32
	IndexType     vk.IndexType
	IndexData     DeviceOrHostAddressConst
	TransformData DeviceOrHostAddressConst
}

type AccelerationStructureGeometryInstancesData struct {
	SType           vk.StructureType
	ArrayOfPointers vk.Bool32
	Data            DeviceOrHostAddressConst
}

// AccelerationStructureGeometryData stands in for the C geometry union.
// Exactly one arm may be set; GeometryType on the enclosing geometry picks
// which one the shim reads.
type AccelerationStructureGeometryData struct {
	Triangles AccelerationStructureGeometryTrianglesData
	Instances AccelerationStructureGeometryInstancesData
}

type AccelerationStructureGeometry struct {
	SType        vk.StructureType
	GeometryType GeometryType
	Geometry     AccelerationStructureGeometryData
	Flags        GeometryFlags
}

type AccelerationStructureBuildGeometryInfo struct {
	SType                    vk.StructureType
	Type                     AccelerationStructureType
	Flags                    BuildAccelerationStructureFlags
	Mode                     BuildAccelerationStructureMode
	SrcAccelerationStructure AccelerationStructure
	DstAccelerationStructure AccelerationStructure
	GeometryCount            uint32
	PGeometries              []AccelerationStructureGeometry
	ScratchData              DeviceOrHostAddress
}

type AccelerationStructureBuildRangeInfo struct {
	PrimitiveCount  uint32
	PrimitiveOffset uint32
	FirstVertex     uint32
	TransformOffset uint32
}

// Filled by GetAccelerationStructureBuildSizes.
type AccelerationStructureBuildSizesInfo struct {
	SType                     vk.StructureType
	AccelerationStructureSize vk.DeviceSize
	UpdateScratchSize         vk.DeviceSize
	BuildScratchSize          vk.DeviceSize
}

type AccelerationStructureCreateInfo struct {
	SType         vk.StructureType
	Buffer        vk.Buffer
	Offset        vk.DeviceSize
	Size          vk.DeviceSize
	Type          AccelerationStructureType
	DeviceAddress vk.DeviceAddress
}

type AccelerationStructureDeviceAddressInfo struct {
	SType                 vk.StructureType
	AccelerationStructure AccelerationStructure
}

type BufferDeviceAddressInfo struct {
	SType  vk.StructureType
	Buffer vk.Buffer
}

// VkStridedDeviceAddressRegionKHR. Three 64-bit words, identical to the C
// layout, so CmdTraceRays passes it through without conversion.
type StridedDeviceAddressRegion struct {
	DeviceAddress vk.DeviceAddress
	Stride        vk.DeviceSize
	Size          vk.DeviceSize
}

type RayTracingShaderGroupCreateInfo struct {
	SType              vk.StructureType
	Type               RayTracingShaderGroupType
	GeneralShader      uint32
	ClosestHitShader   uint32
	AnyHitShader       uint32
	IntersectionShader uint32
}

type RayTracingPipelineCreateInfo struct {
	SType                        vk.StructureType
	Flags                        vk.PipelineCreateFlags
	StageCount                   uint32
	PStages                      []vk.PipelineShaderStageCreateInfo
	GroupCount                   uint32
	PGroups                      []RayTracingShaderGroupCreateInfo
	MaxPipelineRayRecursionDepth uint32
	Layout                       vk.PipelineLayout
}

// WriteDescriptorSetAccelerationStructure chains onto a WriteDescriptorSet
// through PNext and is read by the driver as-is, so the field order and
// padding mirror VkWriteDescriptorSetAccelerationStructureKHR exactly.
type WriteDescriptorSetAccelerationStructure struct {
	SType                      vk.StructureType
	PNext                      unsafe.Pointer
	AccelerationStructureCount uint32
	PAccelerationStructures    *AccelerationStructure
}

// Limits from VkPhysicalDeviceRayTracingPipelinePropertiesKHR.
type RayTracingPipelineProperties struct {
	ShaderGroupHandleSize      uint32
	MaxRayRecursionDepth       uint32
	MaxShaderGroupStride       uint32
	ShaderGroupBaseAlignment   uint32
	ShaderGroupHandleAlignment uint32
	MaxRayHitAttributeSize     uint32
}

// Limits from VkPhysicalDeviceAccelerationStructurePropertiesKHR.
type AccelerationStructureProperties struct {
	MaxGeometryCount                               uint64
	MaxInstanceCount                               uint64
	MaxPrimitiveCount                              uint64
	MinAccelerationStructureScratchOffsetAlignment uint32
}
