package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass

	registryID uuid.UUID
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	framebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(framebuffer.Attachments)),
		PAttachments:    framebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &createInfo, context.Allocator, &framebuffer.Handle); res != vk.Success {
		err := fmt.Errorf("failed to create framebuffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	id, err := context.Registry.Track("framebuffer", "swapchain framebuffer", func() {
		if framebuffer.Handle != vk.NullFramebuffer {
			vk.DestroyFramebuffer(context.Device.LogicalDevice, framebuffer.Handle, context.Allocator)
			framebuffer.Handle = vk.NullFramebuffer
		}
	})
	if err != nil {
		return nil, err
	}
	framebuffer.registryID = id
	return framebuffer, nil
}

// Release destroys the framebuffer during swapchain recreation.
func (vfb *VulkanFramebuffer) Release(context *VulkanContext) error {
	return context.Registry.Release(vfb.registryID)
}
