package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/shader"
)

// VulkanDescriptorResources holds everything descriptor related that a
// pipeline needs: the per-set layouts, the pool they are allocated from and
// the allocated sets, keyed by set index. All three are registered for
// teardown; the pool and layouts historically leaked when they were freed by
// hand.
type VulkanDescriptorResources struct {
	SetLayouts map[uint32]vk.DescriptorSetLayout
	Pool       vk.DescriptorPool
	Sets       map[uint32]vk.DescriptorSet

	setIndices []uint32
}

// DescriptorResourcesCreate provisions descriptor set layouts, a pool sized
// from the merged reflection data and one descriptor set per set index.
func DescriptorResourcesCreate(context *VulkanContext, name string, layout *shader.Layout) (*VulkanDescriptorResources, error) {
	resources := &VulkanDescriptorResources{
		SetLayouts: make(map[uint32]vk.DescriptorSetLayout),
		Sets:       make(map[uint32]vk.DescriptorSet),
		setIndices: layout.SetIndices(),
	}

	sets := layout.Sets()
	poolSizes := map[vk.DescriptorType]uint32{}

	for _, set := range resources.setIndices {
		bindings := sets[set]
		layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
		for i, b := range bindings {
			descriptorType := vulkanDescriptorType(b.Type)
			if descriptorType == vk.DescriptorTypeMaxEnum {
				return nil, fmt.Errorf("binding type %v has no vulkan mapping: %w", b.Type, core.ErrReflectionMismatch)
			}
			layoutBindings[i] = vk.DescriptorSetLayoutBinding{
				Binding:         b.Binding,
				DescriptorType:  descriptorType,
				DescriptorCount: b.Count,
				StageFlags:      vulkanStageMask(b.Stages),
			}
			poolSizes[descriptorType] += b.Count
		}

		layoutInfo := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(layoutBindings)),
			PBindings:    layoutBindings,
		}
		var setLayout vk.DescriptorSetLayout
		if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &setLayout); res != vk.Success {
			err := fmt.Errorf("failed to create descriptor set layout %d for %q: %s", set, name, VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		resources.SetLayouts[set] = setLayout
		context.Registry.Track("descriptor_set_layout", fmt.Sprintf("%s set %d", name, set), func() {
			vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, setLayout, context.Allocator)
		})
	}

	sizes := make([]vk.DescriptorPoolSize, 0, len(poolSizes))
	for descriptorType, count := range poolSizes {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: descriptorType, DescriptorCount: count})
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
		MaxSets:       uint32(len(resources.setIndices)),
	}
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &resources.Pool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool for %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	pool := resources.Pool
	context.Registry.Track("descriptor_pool", name, func() {
		// Frees the sets allocated from it as well.
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, pool, context.Allocator)
	})

	for _, set := range resources.setIndices {
		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     resources.Pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{resources.SetLayouts[set]},
		}
		handles := make([]vk.DescriptorSet, 1)
		if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &handles[0]); res != vk.Success {
			err := fmt.Errorf("failed to allocate descriptor set %d for %q: %s", set, name, VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		resources.Sets[set] = handles[0]
	}

	return resources, nil
}

// OrderedSetHandles returns the descriptor sets sorted by set index, the
// order they bind in.
func (r *VulkanDescriptorResources) OrderedSetHandles() []vk.DescriptorSet {
	handles := make([]vk.DescriptorSet, len(r.setIndices))
	for i, set := range r.setIndices {
		handles[i] = r.Sets[set]
	}
	return handles
}

// OrderedSetLayouts returns the set layouts sorted by set index, as pipeline
// layout creation wants them.
func (r *VulkanDescriptorResources) OrderedSetLayouts() []vk.DescriptorSetLayout {
	layouts := make([]vk.DescriptorSetLayout, len(r.setIndices))
	for i, set := range r.setIndices {
		layouts[i] = r.SetLayouts[set]
	}
	return layouts
}

// PipelineLayoutCreate builds the pipeline layout from the merged reflection
// data: ordered set layouts plus the unioned push constant ranges.
func PipelineLayoutCreate(context *VulkanContext, name string, resources *VulkanDescriptorResources, layout *shader.Layout) (vk.PipelineLayout, error) {
	ranges := layout.PushConstants()
	pushConstantRanges := make([]vk.PushConstantRange, len(ranges))
	for i, pc := range ranges {
		pushConstantRanges[i] = vk.PushConstantRange{
			StageFlags: vulkanStageMask(pc.Stages),
			Offset:     pc.Offset,
			Size:       pc.Size,
		}
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(resources.setIndices)),
		PSetLayouts:            resources.OrderedSetLayouts(),
		PushConstantRangeCount: uint32(len(pushConstantRanges)),
		PPushConstantRanges:    pushConstantRanges,
	}
	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &pipelineLayout); res != vk.Success {
		err := fmt.Errorf("failed to create pipeline layout for %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullPipelineLayout, err
	}
	context.Registry.Track("pipeline_layout", name, func() {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipelineLayout, context.Allocator)
	})
	return pipelineLayout, nil
}

type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

// GraphicsPipelineCreate builds the rasterization pipeline for the preview
// path: positions on binding 0, normals on binding 1, dynamic viewport and
// scissor so window resizes do not rebuild the pipeline.
func GraphicsPipelineCreate(
	context *VulkanContext,
	renderpass *VulkanRenderpass,
	layout *shader.Layout,
	resources *VulkanDescriptorResources,
	vertModule, fragModule vk.ShaderModule,
	wireframe bool,
) (*VulkanPipeline, error) {
	pipelineLayout, err := PipelineLayoutCreate(context, "raster", resources, layout)
	if err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertModule,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  VulkanSafeString("main"),
		},
	}

	bindingDescriptions := []vk.VertexInputBindingDescription{
		{Binding: 0, Stride: 12, InputRate: vk.VertexInputRateVertex},
		{Binding: 1, Stride: 12, InputRate: vk.VertexInputRateVertex},
	}
	attributeDescriptions := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 1, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindingDescriptions)),
		PVertexBindingDescriptions:      bindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(attributeDescriptions)),
		PVertexAttributeDescriptions:    attributeDescriptions,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	polygonMode := vk.PolygonModeFill
	if wireframe {
		polygonMode = vk.PolygonModeLine
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: polygonMode,
		LineWidth:   1.0,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		DepthCompareOp:   vk.CompareOpLess,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              pipelineLayout,
		RenderPass:          renderpass.Handle,
		Subpass:             0,
	}

	handles := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo},
		context.Allocator,
		handles); res != vk.Success {
		err := fmt.Errorf("failed to create graphics pipeline: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	pipeline := &VulkanPipeline{Handle: handles[0], PipelineLayout: pipelineLayout}
	context.Registry.Track("pipeline", "raster pipeline", func() {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
	})
	core.LogInfo("Graphics pipeline created (wireframe: %t).", wireframe)
	return pipeline, nil
}
