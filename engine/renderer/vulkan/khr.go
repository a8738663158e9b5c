package vulkan

/*
#cgo LDFLAGS: -lvulkan

#include <stdlib.h>
#include <string.h>
#include <vulkan/vulkan.h>

static PFN_vkCreateAccelerationStructureKHR            fpCreateAccelerationStructure;
static PFN_vkDestroyAccelerationStructureKHR           fpDestroyAccelerationStructure;
static PFN_vkGetAccelerationStructureBuildSizesKHR     fpGetAccelerationStructureBuildSizes;
static PFN_vkCmdBuildAccelerationStructuresKHR         fpCmdBuildAccelerationStructures;
static PFN_vkGetAccelerationStructureDeviceAddressKHR  fpGetAccelerationStructureDeviceAddress;
static PFN_vkCreateRayTracingPipelinesKHR              fpCreateRayTracingPipelines;
static PFN_vkGetRayTracingShaderGroupHandlesKHR        fpGetRayTracingShaderGroupHandles;
static PFN_vkCmdTraceRaysKHR                           fpCmdTraceRays;
static PFN_vkGetBufferDeviceAddress                    fpGetBufferDeviceAddress;

static void khrLoadProcs(VkDevice device) {
	fpCreateAccelerationStructure = (PFN_vkCreateAccelerationStructureKHR)
		vkGetDeviceProcAddr(device, "vkCreateAccelerationStructureKHR");
	fpDestroyAccelerationStructure = (PFN_vkDestroyAccelerationStructureKHR)
		vkGetDeviceProcAddr(device, "vkDestroyAccelerationStructureKHR");
	fpGetAccelerationStructureBuildSizes = (PFN_vkGetAccelerationStructureBuildSizesKHR)
		vkGetDeviceProcAddr(device, "vkGetAccelerationStructureBuildSizesKHR");
	fpCmdBuildAccelerationStructures = (PFN_vkCmdBuildAccelerationStructuresKHR)
		vkGetDeviceProcAddr(device, "vkCmdBuildAccelerationStructuresKHR");
	fpGetAccelerationStructureDeviceAddress = (PFN_vkGetAccelerationStructureDeviceAddressKHR)
		vkGetDeviceProcAddr(device, "vkGetAccelerationStructureDeviceAddressKHR");
	fpCreateRayTracingPipelines = (PFN_vkCreateRayTracingPipelinesKHR)
		vkGetDeviceProcAddr(device, "vkCreateRayTracingPipelinesKHR");
	fpGetRayTracingShaderGroupHandles = (PFN_vkGetRayTracingShaderGroupHandlesKHR)
		vkGetDeviceProcAddr(device, "vkGetRayTracingShaderGroupHandlesKHR");
	fpCmdTraceRays = (PFN_vkCmdTraceRaysKHR)
		vkGetDeviceProcAddr(device, "vkCmdTraceRaysKHR");
	fpGetBufferDeviceAddress = (PFN_vkGetBufferDeviceAddress)
		vkGetDeviceProcAddr(device, "vkGetBufferDeviceAddress");
}

static int khrProcsLoaded(void) {
	return fpCreateAccelerationStructure != NULL
		&& fpDestroyAccelerationStructure != NULL
		&& fpGetAccelerationStructureBuildSizes != NULL
		&& fpCmdBuildAccelerationStructures != NULL
		&& fpGetAccelerationStructureDeviceAddress != NULL
		&& fpCreateRayTracingPipelines != NULL
		&& fpGetRayTracingShaderGroupHandles != NULL
		&& fpCmdTraceRays != NULL
		&& fpGetBufferDeviceAddress != NULL;
}

// Feature chain handed to vkCreateDevice through pNext. Allocated as one C
// block so the inner pointers never reference Go memory.
typedef struct {
	VkPhysicalDeviceRayTracingPipelineFeaturesKHR    rt;
	VkPhysicalDeviceAccelerationStructureFeaturesKHR as;
	VkPhysicalDeviceBufferDeviceAddressFeatures      bda;
} KhrFeatureChain;

static KhrFeatureChain* khrNewFeatureChain(void) {
	KhrFeatureChain* chain = (KhrFeatureChain*)calloc(1, sizeof(KhrFeatureChain));
	chain->rt.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_FEATURES_KHR;
	chain->rt.rayTracingPipeline = VK_TRUE;
	chain->rt.pNext = &chain->as;
	chain->as.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_FEATURES_KHR;
	chain->as.accelerationStructure = VK_TRUE;
	chain->as.pNext = &chain->bda;
	chain->bda.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_BUFFER_DEVICE_ADDRESS_FEATURES;
	chain->bda.bufferDeviceAddress = VK_TRUE;
	return chain;
}

// The pNext linking happens here so the two property structs can be passed
// from Go as plain out parameters.
static void khrGetRayTracingProperties(
	VkPhysicalDevice physicalDevice,
	VkPhysicalDeviceRayTracingPipelinePropertiesKHR* rt,
	VkPhysicalDeviceAccelerationStructurePropertiesKHR* as) {
	memset(rt, 0, sizeof(*rt));
	memset(as, 0, sizeof(*as));
	rt->sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_PROPERTIES_KHR;
	as->sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_PROPERTIES_KHR;
	rt->pNext = as;

	VkPhysicalDeviceProperties2 properties;
	memset(&properties, 0, sizeof(properties));
	properties.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_PROPERTIES_2;
	properties.pNext = rt;
	vkGetPhysicalDeviceProperties2(physicalDevice, &properties);
}

static VkResult khrCreateAccelerationStructure(
	VkDevice device,
	VkBuffer buffer,
	VkDeviceSize offset,
	VkDeviceSize size,
	VkAccelerationStructureTypeKHR type,
	const VkAllocationCallbacks* allocator,
	VkAccelerationStructureKHR* structure) {
	VkAccelerationStructureCreateInfoKHR info;
	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_CREATE_INFO_KHR;
	info.buffer = buffer;
	info.offset = offset;
	info.size = size;
	info.type = type;
	return fpCreateAccelerationStructure(device, &info, allocator, structure);
}

static void khrDestroyAccelerationStructure(
	VkDevice device,
	VkAccelerationStructureKHR structure,
	const VkAllocationCallbacks* allocator) {
	fpDestroyAccelerationStructure(device, structure, allocator);
}

static void khrGetAccelerationStructureBuildSizes(
	VkDevice device,
	VkAccelerationStructureBuildTypeKHR buildType,
	const VkAccelerationStructureBuildGeometryInfoKHR* info,
	const uint32_t* primitiveCounts,
	VkAccelerationStructureBuildSizesInfoKHR* sizes) {
	fpGetAccelerationStructureBuildSizes(device, buildType, info, primitiveCounts, sizes);
}

static void khrCmdBuildAccelerationStructures(
	VkCommandBuffer commandBuffer,
	uint32_t infoCount,
	const VkAccelerationStructureBuildGeometryInfoKHR* infos,
	const VkAccelerationStructureBuildRangeInfoKHR* const* rangeInfos) {
	fpCmdBuildAccelerationStructures(commandBuffer, infoCount, infos, rangeInfos);
}

static VkDeviceAddress khrGetAccelerationStructureDeviceAddress(
	VkDevice device,
	VkAccelerationStructureKHR structure) {
	VkAccelerationStructureDeviceAddressInfoKHR info;
	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_DEVICE_ADDRESS_INFO_KHR;
	info.accelerationStructure = structure;
	return fpGetAccelerationStructureDeviceAddress(device, &info);
}

static VkDeviceAddress khrGetBufferDeviceAddress(VkDevice device, VkBuffer buffer) {
	VkBufferDeviceAddressInfo info;
	memset(&info, 0, sizeof(info));
	info.sType = VK_STRUCTURE_TYPE_BUFFER_DEVICE_ADDRESS_INFO;
	info.buffer = buffer;
	return fpGetBufferDeviceAddress(device, &info);
}

static VkResult khrCreateRayTracingPipelines(
	VkDevice device,
	VkDeferredOperationKHR deferredOperation,
	VkPipelineCache pipelineCache,
	uint32_t createInfoCount,
	const VkRayTracingPipelineCreateInfoKHR* createInfos,
	const VkAllocationCallbacks* allocator,
	VkPipeline* pipelines) {
	return fpCreateRayTracingPipelines(device, deferredOperation, pipelineCache,
		createInfoCount, createInfos, allocator, pipelines);
}

static VkResult khrGetRayTracingShaderGroupHandles(
	VkDevice device,
	VkPipeline pipeline,
	uint32_t firstGroup,
	uint32_t groupCount,
	size_t dataSize,
	void* data) {
	return fpGetRayTracingShaderGroupHandles(device, pipeline, firstGroup, groupCount, dataSize, data);
}

static void khrCmdTraceRays(
	VkCommandBuffer commandBuffer,
	const VkStridedDeviceAddressRegionKHR* raygen,
	const VkStridedDeviceAddressRegionKHR* miss,
	const VkStridedDeviceAddressRegionKHR* hit,
	const VkStridedDeviceAddressRegionKHR* callable,
	uint32_t width, uint32_t height, uint32_t depth) {
	fpCmdTraceRays(commandBuffer, raygen, miss, hit, callable, width, height, depth);
}
*/
import "C"

import (
	"strings"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

/**
 * cgo shim for the ray tracing extension entry points. The entry points are
 * device level and loaded through vkGetDeviceProcAddr once the logical
 * device exists; calling any wrapper before loadRayTracingProcs succeeded
 * dereferences a null function pointer, which is why the backend gates every
 * ray tracing path on RayTracing.Supported.
 *
 * Structs carrying slices are converted into C allocations per call and
 * freed before the wrapper returns. Command buffer parameters are consumed
 * at record time, so freeing after vkCmd* returns is safe.
 */

func cDevice(d vk.Device) C.VkDevice {
	return *(*C.VkDevice)(unsafe.Pointer(&d))
}

func cPhysicalDevice(d vk.PhysicalDevice) C.VkPhysicalDevice {
	return *(*C.VkPhysicalDevice)(unsafe.Pointer(&d))
}

func cCommandBuffer(cb vk.CommandBuffer) C.VkCommandBuffer {
	return *(*C.VkCommandBuffer)(unsafe.Pointer(&cb))
}

func cBuffer(b vk.Buffer) C.VkBuffer {
	return *(*C.VkBuffer)(unsafe.Pointer(&b))
}

func cPipeline(p vk.Pipeline) C.VkPipeline {
	return *(*C.VkPipeline)(unsafe.Pointer(&p))
}

func cPipelineCache(p vk.PipelineCache) C.VkPipelineCache {
	return *(*C.VkPipelineCache)(unsafe.Pointer(&p))
}

func cPipelineLayout(l vk.PipelineLayout) C.VkPipelineLayout {
	return *(*C.VkPipelineLayout)(unsafe.Pointer(&l))
}

func cShaderModule(m vk.ShaderModule) C.VkShaderModule {
	return *(*C.VkShaderModule)(unsafe.Pointer(&m))
}

func cAccelerationStructure(s AccelerationStructure) C.VkAccelerationStructureKHR {
	return *(*C.VkAccelerationStructureKHR)(unsafe.Pointer(&s))
}

func cDeferredOperation(op DeferredOperation) C.VkDeferredOperationKHR {
	return *(*C.VkDeferredOperationKHR)(unsafe.Pointer(&op))
}

func cAllocator(a *vk.AllocationCallbacks) *C.VkAllocationCallbacks {
	return (*C.VkAllocationCallbacks)(unsafe.Pointer(a))
}

// loadRayTracingProcs resolves the extension entry points on the logical
// device. Fails when the driver enabled the extensions but does not expose
// the functions, which would otherwise surface as a crash mid-frame.
func loadRayTracingProcs(device vk.Device) error {
	C.khrLoadProcs(cDevice(device))
	if C.khrProcsLoaded() == 0 {
		return core.BuildErrorf("driver did not resolve the ray tracing entry points")
	}
	return nil
}

// rayTracingFeatureChain holds the C allocated feature structs chained onto
// DeviceCreateInfo.PNext. Free after vkCreateDevice returned.
type rayTracingFeatureChain struct {
	head unsafe.Pointer
}

func newRayTracingFeatureChain() *rayTracingFeatureChain {
	return &rayTracingFeatureChain{head: unsafe.Pointer(C.khrNewFeatureChain())}
}

func (c *rayTracingFeatureChain) Head() unsafe.Pointer { return c.head }

func (c *rayTracingFeatureChain) Free() {
	if c.head != nil {
		C.free(c.head)
		c.head = nil
	}
}

// GetPhysicalDeviceRayTracingProperties queries the pipeline and
// acceleration structure limits through vkGetPhysicalDeviceProperties2.
func GetPhysicalDeviceRayTracingProperties(
	physicalDevice vk.PhysicalDevice,
) (RayTracingPipelineProperties, AccelerationStructureProperties) {
	var rt C.VkPhysicalDeviceRayTracingPipelinePropertiesKHR
	var as C.VkPhysicalDeviceAccelerationStructurePropertiesKHR
	C.khrGetRayTracingProperties(cPhysicalDevice(physicalDevice), &rt, &as)

	return RayTracingPipelineProperties{
			ShaderGroupHandleSize:      uint32(rt.shaderGroupHandleSize),
			MaxRayRecursionDepth:       uint32(rt.maxRayRecursionDepth),
			MaxShaderGroupStride:       uint32(rt.maxShaderGroupStride),
			ShaderGroupBaseAlignment:   uint32(rt.shaderGroupBaseAlignment),
			ShaderGroupHandleAlignment: uint32(rt.shaderGroupHandleAlignment),
			MaxRayHitAttributeSize:     uint32(rt.maxRayHitAttributeSize),
		}, AccelerationStructureProperties{
			MaxGeometryCount:  uint64(as.maxGeometryCount),
			MaxInstanceCount:  uint64(as.maxInstanceCount),
			MaxPrimitiveCount: uint64(as.maxPrimitiveCount),
			MinAccelerationStructureScratchOffsetAlignment: uint32(as.minAccelerationStructureScratchOffsetAlignment),
		}
}

func CreateAccelerationStructureKHR(
	device vk.Device,
	createInfo *AccelerationStructureCreateInfo,
	allocator *vk.AllocationCallbacks,
	structure *AccelerationStructure,
) vk.Result {
	res := C.khrCreateAccelerationStructure(
		cDevice(device),
		cBuffer(createInfo.Buffer),
		C.VkDeviceSize(createInfo.Offset),
		C.VkDeviceSize(createInfo.Size),
		C.VkAccelerationStructureTypeKHR(createInfo.Type),
		cAllocator(allocator),
		(*C.VkAccelerationStructureKHR)(unsafe.Pointer(structure)))
	return vk.Result(res)
}

func DestroyAccelerationStructureKHR(
	device vk.Device,
	structure AccelerationStructure,
	allocator *vk.AllocationCallbacks,
) {
	C.khrDestroyAccelerationStructure(cDevice(device), cAccelerationStructure(structure), cAllocator(allocator))
}

func convertGeometry(g *AccelerationStructureGeometry, out *C.VkAccelerationStructureGeometryKHR) {
	out.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR
	out.geometryType = C.VkGeometryTypeKHR(g.GeometryType)
	out.flags = C.VkGeometryFlagsKHR(g.Flags)
	switch g.GeometryType {
	case GeometryTypeTriangles:
		src := &g.Geometry.Triangles
		tri := (*C.VkAccelerationStructureGeometryTrianglesDataKHR)(unsafe.Pointer(&out.geometry))
		tri.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_TRIANGLES_DATA_KHR
		tri.vertexFormat = C.VkFormat(src.VertexFormat)
		*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.vertexData)) = C.VkDeviceAddress(src.VertexData.DeviceAddress)
		tri.vertexStride = C.VkDeviceSize(src.VertexStride)
		tri.maxVertex = C.uint32_t(src.MaxVertex)
		tri.indexType = C.VkIndexType(src.IndexType)
		*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.indexData)) = C.VkDeviceAddress(src.IndexData.DeviceAddress)
	case GeometryTypeInstances:
		src := &g.Geometry.Instances
		inst := (*C.VkAccelerationStructureGeometryInstancesDataKHR)(unsafe.Pointer(&out.geometry))
		inst.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_INSTANCES_DATA_KHR
		inst.arrayOfPointers = C.VkBool32(src.ArrayOfPointers)
		*(*C.VkDeviceAddress)(unsafe.Pointer(&inst.data)) = C.VkDeviceAddress(src.Data.DeviceAddress)
	}
}

// convertBuildGeometryInfo fills out and returns the C allocation holding
// the geometry array; the caller frees it once the call returned.
func convertBuildGeometryInfo(
	info *AccelerationStructureBuildGeometryInfo,
	out *C.VkAccelerationStructureBuildGeometryInfoKHR,
) unsafe.Pointer {
	count := len(info.PGeometries)
	geometries := C.calloc(C.size_t(count), C.sizeof_VkAccelerationStructureGeometryKHR)
	carr := unsafe.Slice((*C.VkAccelerationStructureGeometryKHR)(geometries), count)
	for i := range info.PGeometries {
		convertGeometry(&info.PGeometries[i], &carr[i])
	}

	out.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR
	out._type = C.VkAccelerationStructureTypeKHR(info.Type)
	out.flags = C.VkBuildAccelerationStructureFlagsKHR(info.Flags)
	out.mode = C.VkBuildAccelerationStructureModeKHR(info.Mode)
	out.srcAccelerationStructure = cAccelerationStructure(info.SrcAccelerationStructure)
	out.dstAccelerationStructure = cAccelerationStructure(info.DstAccelerationStructure)
	out.geometryCount = C.uint32_t(info.GeometryCount)
	out.pGeometries = (*C.VkAccelerationStructureGeometryKHR)(geometries)
	*(*C.VkDeviceAddress)(unsafe.Pointer(&out.scratchData)) = C.VkDeviceAddress(info.ScratchData.DeviceAddress)
	return geometries
}

func GetAccelerationStructureBuildSizesKHR(
	device vk.Device,
	buildType AccelerationStructureBuildType,
	info *AccelerationStructureBuildGeometryInfo,
	primitiveCounts []uint32,
	sizes *AccelerationStructureBuildSizesInfo,
) {
	var cinfo C.VkAccelerationStructureBuildGeometryInfoKHR
	geometries := convertBuildGeometryInfo(info, &cinfo)
	defer C.free(geometries)

	var csizes C.VkAccelerationStructureBuildSizesInfoKHR
	csizes.sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_SIZES_INFO_KHR
	C.khrGetAccelerationStructureBuildSizes(
		cDevice(device),
		C.VkAccelerationStructureBuildTypeKHR(buildType),
		&cinfo,
		(*C.uint32_t)(unsafe.Pointer(&primitiveCounts[0])),
		&csizes)

	sizes.AccelerationStructureSize = vk.DeviceSize(csizes.accelerationStructureSize)
	sizes.UpdateScratchSize = vk.DeviceSize(csizes.updateScratchSize)
	sizes.BuildScratchSize = vk.DeviceSize(csizes.buildScratchSize)
}

func CmdBuildAccelerationStructuresKHR(
	commandBuffer vk.CommandBuffer,
	infoCount uint32,
	infos []AccelerationStructureBuildGeometryInfo,
	buildRanges [][]AccelerationStructureBuildRangeInfo,
) {
	n := int(infoCount)
	cinfos := (*C.VkAccelerationStructureBuildGeometryInfoKHR)(
		C.calloc(C.size_t(n), C.sizeof_VkAccelerationStructureBuildGeometryInfoKHR))
	defer C.free(unsafe.Pointer(cinfos))
	infoSlice := unsafe.Slice(cinfos, n)

	rangePointers := (**C.VkAccelerationStructureBuildRangeInfoKHR)(
		C.calloc(C.size_t(n), C.size_t(unsafe.Sizeof(uintptr(0)))))
	defer C.free(unsafe.Pointer(rangePointers))
	pointerSlice := unsafe.Slice(rangePointers, n)

	var allocations []unsafe.Pointer
	defer func() {
		for _, p := range allocations {
			C.free(p)
		}
	}()

	for i := 0; i < n; i++ {
		allocations = append(allocations, convertBuildGeometryInfo(&infos[i], &infoSlice[i]))

		rangeCount := len(buildRanges[i])
		cranges := (*C.VkAccelerationStructureBuildRangeInfoKHR)(
			C.calloc(C.size_t(rangeCount), C.sizeof_VkAccelerationStructureBuildRangeInfoKHR))
		allocations = append(allocations, unsafe.Pointer(cranges))
		rangeSlice := unsafe.Slice(cranges, rangeCount)
		for j, r := range buildRanges[i] {
			rangeSlice[j].primitiveCount = C.uint32_t(r.PrimitiveCount)
			rangeSlice[j].primitiveOffset = C.uint32_t(r.PrimitiveOffset)
			rangeSlice[j].firstVertex = C.uint32_t(r.FirstVertex)
			rangeSlice[j].transformOffset = C.uint32_t(r.TransformOffset)
		}
		pointerSlice[i] = cranges
	}

	C.khrCmdBuildAccelerationStructures(cCommandBuffer(commandBuffer), C.uint32_t(infoCount), cinfos, rangePointers)
}

func GetAccelerationStructureDeviceAddressKHR(
	device vk.Device,
	info *AccelerationStructureDeviceAddressInfo,
) vk.DeviceAddress {
	return vk.DeviceAddress(C.khrGetAccelerationStructureDeviceAddress(
		cDevice(device), cAccelerationStructure(info.AccelerationStructure)))
}

func GetBufferDeviceAddress(device vk.Device, info *BufferDeviceAddressInfo) vk.DeviceAddress {
	return vk.DeviceAddress(C.khrGetBufferDeviceAddress(cDevice(device), cBuffer(info.Buffer)))
}

func CreateRayTracingPipelinesKHR(
	device vk.Device,
	deferredOperation DeferredOperation,
	pipelineCache vk.PipelineCache,
	createInfoCount uint32,
	createInfos []RayTracingPipelineCreateInfo,
	allocator *vk.AllocationCallbacks,
	pipelines []vk.Pipeline,
) vk.Result {
	n := int(createInfoCount)
	cinfos := (*C.VkRayTracingPipelineCreateInfoKHR)(
		C.calloc(C.size_t(n), C.sizeof_VkRayTracingPipelineCreateInfoKHR))
	defer C.free(unsafe.Pointer(cinfos))
	infoSlice := unsafe.Slice(cinfos, n)

	var allocations []unsafe.Pointer
	defer func() {
		for _, p := range allocations {
			C.free(p)
		}
	}()

	for i := range infoSlice {
		info := &createInfos[i]

		stages := (*C.VkPipelineShaderStageCreateInfo)(
			C.calloc(C.size_t(len(info.PStages)), C.sizeof_VkPipelineShaderStageCreateInfo))
		allocations = append(allocations, unsafe.Pointer(stages))
		stageSlice := unsafe.Slice(stages, len(info.PStages))
		for j := range info.PStages {
			stage := &info.PStages[j]
			stageSlice[j].sType = C.VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO
			stageSlice[j].stage = C.VkShaderStageFlagBits(stage.Stage)
			stageSlice[j].module = cShaderModule(stage.Module)
			name := C.CString(strings.TrimRight(stage.PName, "\x00"))
			allocations = append(allocations, unsafe.Pointer(name))
			stageSlice[j].pName = name
		}

		groups := (*C.VkRayTracingShaderGroupCreateInfoKHR)(
			C.calloc(C.size_t(len(info.PGroups)), C.sizeof_VkRayTracingShaderGroupCreateInfoKHR))
		allocations = append(allocations, unsafe.Pointer(groups))
		groupSlice := unsafe.Slice(groups, len(info.PGroups))
		for j, g := range info.PGroups {
			groupSlice[j].sType = C.VK_STRUCTURE_TYPE_RAY_TRACING_SHADER_GROUP_CREATE_INFO_KHR
			groupSlice[j]._type = C.VkRayTracingShaderGroupTypeKHR(g.Type)
			groupSlice[j].generalShader = C.uint32_t(g.GeneralShader)
			groupSlice[j].closestHitShader = C.uint32_t(g.ClosestHitShader)
			groupSlice[j].anyHitShader = C.uint32_t(g.AnyHitShader)
			groupSlice[j].intersectionShader = C.uint32_t(g.IntersectionShader)
		}

		infoSlice[i].sType = C.VK_STRUCTURE_TYPE_RAY_TRACING_PIPELINE_CREATE_INFO_KHR
		infoSlice[i].flags = C.VkPipelineCreateFlags(info.Flags)
		infoSlice[i].stageCount = C.uint32_t(info.StageCount)
		infoSlice[i].pStages = stages
		infoSlice[i].groupCount = C.uint32_t(info.GroupCount)
		infoSlice[i].pGroups = groups
		infoSlice[i].maxPipelineRayRecursionDepth = C.uint32_t(info.MaxPipelineRayRecursionDepth)
		infoSlice[i].layout = cPipelineLayout(info.Layout)
		infoSlice[i].basePipelineIndex = -1
	}

	res := C.khrCreateRayTracingPipelines(
		cDevice(device),
		cDeferredOperation(deferredOperation),
		cPipelineCache(pipelineCache),
		C.uint32_t(createInfoCount),
		cinfos,
		cAllocator(allocator),
		(*C.VkPipeline)(unsafe.Pointer(&pipelines[0])))
	return vk.Result(res)
}

func GetRayTracingShaderGroupHandlesKHR(
	device vk.Device,
	pipeline vk.Pipeline,
	firstGroup uint32,
	groupCount uint32,
	dataSize uint,
	data []byte,
) vk.Result {
	res := C.khrGetRayTracingShaderGroupHandles(
		cDevice(device),
		cPipeline(pipeline),
		C.uint32_t(firstGroup),
		C.uint32_t(groupCount),
		C.size_t(dataSize),
		unsafe.Pointer(&data[0]))
	return vk.Result(res)
}

func CmdTraceRaysKHR(
	commandBuffer vk.CommandBuffer,
	raygen, miss, hit, callable *StridedDeviceAddressRegion,
	width, height, depth uint32,
) {
	cRaygen := cRegion(raygen)
	cMiss := cRegion(miss)
	cHit := cRegion(hit)
	cCallable := cRegion(callable)
	C.khrCmdTraceRays(
		cCommandBuffer(commandBuffer),
		&cRaygen, &cMiss, &cHit, &cCallable,
		C.uint32_t(width), C.uint32_t(height), C.uint32_t(depth))
}

func cRegion(r *StridedDeviceAddressRegion) C.VkStridedDeviceAddressRegionKHR {
	return C.VkStridedDeviceAddressRegionKHR{
		deviceAddress: C.VkDeviceAddress(r.DeviceAddress),
		stride:        C.VkDeviceSize(r.Stride),
		size:          C.VkDeviceSize(r.Size),
	}
}
