package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format

	registryID uuid.UUID
}

// ImageCreate allocates a 2D image with bound device local memory and a
// matching view. The ray tracing output target uses the storage and transfer
// source usages; the depth attachment passes a depth aspect.
func ImageCreate(
	context *VulkanContext,
	name string,
	width, height uint32,
	format vk.Format,
	usage vk.ImageUsageFlags,
	aspect vk.ImageAspectFlags,
) (*VulkanImage, error) {
	image := &VulkanImage{
		Width:  width,
		Height: height,
		Format: format,
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageInfo, context.Allocator, &image.Handle); res != vk.Success {
		err := fmt.Errorf("failed to create image %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex < 0 {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		err := fmt.Errorf("no suitable memory type for image %q: %w", name, core.ErrOutOfDeviceMemory)
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &image.Memory); res != vk.Success {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		err := fmt.Errorf("failed to allocate memory for image %q: %s: %w",
			name, VulkanResultString(res), core.ErrOutOfDeviceMemory)
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		image.destroy(context)
		err := fmt.Errorf("failed to bind memory for image %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &image.View); res != vk.Success {
		image.destroy(context)
		err := fmt.Errorf("failed to create view for image %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	id, err := context.Registry.Track("image", name, func() {
		image.destroy(context)
	})
	if err != nil {
		image.destroy(context)
		return nil, err
	}
	image.registryID = id
	return image, nil
}

func (i *VulkanImage) destroy(context *VulkanContext) {
	if i.View != vk.NullImageView {
		vk.DestroyImageView(context.Device.LogicalDevice, i.View, context.Allocator)
		i.View = vk.NullImageView
	}
	if i.Handle != vk.NullImage {
		vk.DestroyImage(context.Device.LogicalDevice, i.Handle, context.Allocator)
		i.Handle = vk.NullImage
	}
	if i.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, i.Memory, context.Allocator)
		i.Memory = vk.NullDeviceMemory
	}
}

// Release destroys the image ahead of shutdown, used during swapchain
// recreation when the ray tracing target changes size.
func (i *VulkanImage) Release(context *VulkanContext) error {
	return context.Registry.Release(i.registryID)
}

// CmdTransitionLayout records a full-image layout transition barrier.
func (i *VulkanImage) CmdTransitionLayout(
	cb *VulkanCommandBuffer,
	aspect vk.ImageAspectFlags,
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
		Image:               i.Handle,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(cb.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}
