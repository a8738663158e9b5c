package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/shader"
)

func vulkanStageFlag(stage shader.Stage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case shader.StageVertex:
		return vk.ShaderStageVertexBit, nil
	case shader.StageFragment:
		return vk.ShaderStageFragmentBit, nil
	case shader.StageRaygen:
		return vk.ShaderStageRaygenBit, nil
	case shader.StageMiss:
		return vk.ShaderStageMissBit, nil
	case shader.StageClosestHit:
		return vk.ShaderStageClosestHitBit, nil
	default:
		return 0, fmt.Errorf("stage %v has no vulkan mapping: %w", stage, core.ErrUnsupportedStage)
	}
}

func vulkanStageMask(mask shader.StageMask) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlags
	for _, stage := range []shader.Stage{
		shader.StageVertex, shader.StageFragment,
		shader.StageRaygen, shader.StageMiss, shader.StageClosestHit,
	} {
		if !mask.Has(stage) {
			continue
		}
		if bit, err := vulkanStageFlag(stage); err == nil {
			flags |= vk.ShaderStageFlags(bit)
		}
	}
	return flags
}

func vulkanDescriptorType(t shader.BindingType) vk.DescriptorType {
	switch t {
	case shader.BindingUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case shader.BindingStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case shader.BindingStorageImage:
		return vk.DescriptorTypeStorageImage
	case shader.BindingAccelerationStructure:
		return vk.DescriptorTypeAccelerationStructure
	default:
		return vk.DescriptorTypeMaxEnum
	}
}

// ShaderModuleCreate wraps the SPIR-V words of a reflected group into a
// module and registers its destructor.
func ShaderModuleCreate(context *VulkanContext, group *shader.Group) (vk.ShaderModule, error) {
	if len(group.Code) == 0 {
		return vk.NullShaderModule, fmt.Errorf("shader %q has no code: %w", group.Name, core.ErrInvalidUsage)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(group.Code) * 4),
		PCode:    group.Code,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		err := fmt.Errorf("failed to create shader module %q: %s", group.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}
	context.Registry.Track("shader_module", group.Name, func() {
		vk.DestroyShaderModule(context.Device.LogicalDevice, module, context.Allocator)
	})
	return module, nil
}
