package vulkan

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

type VulkanFence struct {
	Handle  vk.Fence
	context *VulkanContext
}

func NewFence(context *VulkanContext, name string, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{context: context}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &fence.Handle); res != vk.Success {
		err := fmt.Errorf("failed to create fence %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	context.Registry.Track("fence", name, func() {
		if fence.Handle != vk.NullFence {
			vk.DestroyFence(context.Device.LogicalDevice, fence.Handle, context.Allocator)
			fence.Handle = vk.NullFence
		}
	})
	return fence, nil
}

// Wait blocks until the fence signals. A timeout or device loss surfaces as
// ErrDeviceLost so the frame ring can shut the application down instead of
// spinning.
func (vf *VulkanFence) Wait(timeout time.Duration) error {
	result := vk.WaitForFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, uint64(timeout.Nanoseconds()))
	switch result {
	case vk.Success:
		return nil
	case vk.Timeout:
		return fmt.Errorf("fence wait timed out after %s: %w", timeout, core.ErrDeviceLost)
	case vk.ErrorDeviceLost:
		return fmt.Errorf("fence wait: %s: %w", VulkanResultString(result), core.ErrDeviceLost)
	default:
		return fmt.Errorf("fence wait failed: %s", VulkanResultString(result))
	}
}

func (vf *VulkanFence) Reset() error {
	if res := vk.ResetFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		err := fmt.Errorf("failed to reset fence: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}
