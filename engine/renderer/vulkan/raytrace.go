package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/shader"
)

// Group indices within the ray tracing pipeline. The shader binding table
// records reference these.
const (
	RAYGEN_GROUP_INDEX      uint32 = 0
	MISS_GROUP_INDEX        uint32 = 1
	CLOSEST_HIT_GROUP_INDEX uint32 = 2
	RAY_TRACING_GROUP_COUNT uint32 = 3
)

type VulkanRayTracingPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

// RayTracingPipelineCreate builds the pipeline from the three reflected
// groups: one raygen, one miss and one triangle hit group around the closest
// hit shader. Recursion stays at one; shadow style effects trace from the
// raygen shader instead of recursing.
func RayTracingPipelineCreate(
	context *VulkanContext,
	layout *shader.Layout,
	resources *VulkanDescriptorResources,
	raygenModule, missModule, closestHitModule vk.ShaderModule,
) (*VulkanRayTracingPipeline, error) {
	if !context.Device.RayTracing.Supported {
		return nil, fmt.Errorf("device has no ray tracing support: %w", core.ErrMissingCapability)
	}
	if context.Device.RayTracing.MaxRayRecursionDepth < 1 {
		return nil, fmt.Errorf("device reports zero ray recursion: %w", core.ErrMissingCapability)
	}

	pipelineLayout, err := PipelineLayoutCreate(context, "ray tracing", resources, layout)
	if err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageRaygenBit,
			Module: raygenModule,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageMissBit,
			Module: missModule,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageClosestHitBit,
			Module: closestHitModule,
			PName:  VulkanSafeString("main"),
		},
	}

	groups := []RayTracingShaderGroupCreateInfo{
		{
			SType:              vk.StructureTypeRayTracingShaderGroupCreateInfo,
			Type:               RayTracingShaderGroupTypeGeneral,
			GeneralShader:      0,
			ClosestHitShader:   ShaderUnusedKhr,
			AnyHitShader:       ShaderUnusedKhr,
			IntersectionShader: ShaderUnusedKhr,
		},
		{
			SType:              vk.StructureTypeRayTracingShaderGroupCreateInfo,
			Type:               RayTracingShaderGroupTypeGeneral,
			GeneralShader:      1,
			ClosestHitShader:   ShaderUnusedKhr,
			AnyHitShader:       ShaderUnusedKhr,
			IntersectionShader: ShaderUnusedKhr,
		},
		{
			SType:              vk.StructureTypeRayTracingShaderGroupCreateInfo,
			Type:               RayTracingShaderGroupTypeTrianglesHitGroup,
			GeneralShader:      ShaderUnusedKhr,
			ClosestHitShader:   2,
			AnyHitShader:       ShaderUnusedKhr,
			IntersectionShader: ShaderUnusedKhr,
		},
	}

	pipelineInfo := RayTracingPipelineCreateInfo{
		SType:                        vk.StructureTypeRayTracingPipelineCreateInfo,
		StageCount:                   uint32(len(stages)),
		PStages:                      stages,
		GroupCount:                   uint32(len(groups)),
		PGroups:                      groups,
		MaxPipelineRayRecursionDepth: 1,
		Layout:                       pipelineLayout,
	}

	handles := make([]vk.Pipeline, 1)
	if res := CreateRayTracingPipelinesKHR(
		context.Device.LogicalDevice,
		NullDeferredOperation,
		vk.NullPipelineCache,
		1,
		[]RayTracingPipelineCreateInfo{pipelineInfo},
		context.Allocator,
		handles); res != vk.Success {
		err := fmt.Errorf("failed to create ray tracing pipeline: %s: %w",
			VulkanResultString(res), core.ErrBuildFailed)
		core.LogError(err.Error())
		return nil, err
	}

	pipeline := &VulkanRayTracingPipeline{Handle: handles[0], PipelineLayout: pipelineLayout}
	context.Registry.Track("pipeline", "ray tracing pipeline", func() {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
	})
	core.LogInfo("Ray tracing pipeline created (%d groups).", len(groups))
	return pipeline, nil
}

// RayTracingDescriptorUpdate points the descriptor set at the current top
// level structure and output image. Called after the initial build and again
// whenever the top level structure or the output image is replaced. Geometry
// data never goes through descriptors: the closest hit shader reads it from
// the buffer addresses embedded in its shader binding table record.
func RayTracingDescriptorUpdate(
	context *VulkanContext,
	resources *VulkanDescriptorResources,
	tlas *VulkanAccelerationStructure,
	outputImage *VulkanImage,
) {
	asHandles := []AccelerationStructure{tlas.Handle}
	asWriteInfo := WriteDescriptorSetAccelerationStructure{
		SType:                      vk.StructureTypeWriteDescriptorSetAccelerationStructure,
		AccelerationStructureCount: 1,
		PAccelerationStructures:    &asHandles[0],
	}
	imageInfo := []vk.DescriptorImageInfo{
		{
			ImageView:   outputImage.View,
			ImageLayout: vk.ImageLayoutGeneral,
		},
	}

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          resources.Sets[0],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeAccelerationStructure,
			PNext:           unsafe.Pointer(&asWriteInfo),
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          resources.Sets[0],
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			PImageInfo:      imageInfo,
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}

// CmdTraceRays records the ray dispatch and the copy of the output image
// into the current swapchain image, with the barriers between them.
func CmdTraceRays(
	context *VulkanContext,
	cb *VulkanCommandBuffer,
	pipeline *VulkanRayTracingPipeline,
	table *VulkanShaderBindingTable,
	resources *VulkanDescriptorResources,
	outputImage *VulkanImage,
	pushConstants []byte,
	imageIndex uint32,
) {
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointRayTracing, pipeline.Handle)
	setHandles := resources.OrderedSetHandles()
	vk.CmdBindDescriptorSets(
		cb.Handle,
		vk.PipelineBindPointRayTracing,
		pipeline.PipelineLayout,
		0,
		uint32(len(setHandles)),
		setHandles,
		0,
		nil)
	if len(pushConstants) > 0 {
		vk.CmdPushConstants(
			cb.Handle,
			pipeline.PipelineLayout,
			vk.ShaderStageFlags(vk.ShaderStageRaygenBit|vk.ShaderStageClosestHitBit|vk.ShaderStageMissBit),
			0,
			uint32(len(pushConstants)),
			unsafe.Pointer(&pushConstants[0]))
	}

	// The output image was left in transfer source layout by the previous
	// frame (or undefined on the first); move it to general for the write.
	outputImage.CmdTransitionLayout(cb,
		vk.ImageAspectFlags(vk.ImageAspectColorBit),
		vk.ImageLayoutUndefined, vk.ImageLayoutGeneral,
		0, vk.AccessFlags(vk.AccessShaderWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageRayTracingShaderBit))

	CmdTraceRaysKHR(
		cb.Handle,
		&table.RaygenRegion,
		&table.MissRegion,
		&table.HitRegion,
		&table.CallableRegion,
		outputImage.Width,
		outputImage.Height,
		1)

	// Wait for the rays, then copy shader output into the swapchain image.
	outputImage.CmdTransitionLayout(cb,
		vk.ImageAspectFlags(vk.ImageAspectColorBit),
		vk.ImageLayoutGeneral, vk.ImageLayoutTransferSrcOptimal,
		vk.AccessFlags(vk.AccessShaderWriteBit), vk.AccessFlags(vk.AccessTransferReadBit),
		vk.PipelineStageFlags(vk.PipelineStageRayTracingShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit))

	swapchainImage := context.Swapchain.Images[imageIndex]
	transitionSwapchainImage(cb, swapchainImage,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		0, vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit))

	copyRegion := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		Extent: vk.Extent3D{
			Width:  outputImage.Width,
			Height: outputImage.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyImage(cb.Handle,
		outputImage.Handle, vk.ImageLayoutTransferSrcOptimal,
		swapchainImage, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{copyRegion})

	transitionSwapchainImage(cb, swapchainImage,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutPresentSrc,
		vk.AccessFlags(vk.AccessTransferWriteBit), 0,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit))
}

func transitionSwapchainImage(
	cb *VulkanCommandBuffer,
	image vk.Image,
	oldLayout, newLayout vk.ImageLayout,
	srcAccess, dstAccess vk.AccessFlags,
	srcStage, dstStage vk.PipelineStageFlags,
) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(cb.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}
