package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

// Device extensions required for hardware ray tracing. When any of them is
// missing the device is still usable for rasterization; the backend degrades
// instead of failing, unless ray tracing was explicitly requested.
var rayTracingExtensionNames = []string{
	"VK_KHR_acceleration_structure",
	"VK_KHR_ray_tracing_pipeline",
	"VK_KHR_deferred_host_operations",
}

type VulkanRayTracingCapabilities struct {
	Supported bool

	// From VkPhysicalDeviceRayTracingPipelinePropertiesKHR.
	ShaderGroupHandleSize      uint32
	ShaderGroupHandleAlignment uint32
	ShaderGroupBaseAlignment   uint32
	MaxRayRecursionDepth       uint32

	// From VkPhysicalDeviceAccelerationStructurePropertiesKHR.
	MaxPrimitiveCount                              uint64
	MinAccelerationStructureScratchOffsetAlignment uint32
}

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format

	RayTracing VulkanRayTracingCapabilities
}

type vulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

type vulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

// DeviceCreate selects a physical device, probes its ray tracing support,
// creates the logical device with the matching extension set and fetches the
// queues and graphics command pool. requireRayTracing makes a device without
// the ray tracing extensions a hard error instead of a degradation.
func DeviceCreate(context *VulkanContext, requireRayTracing bool) error {
	if err := selectPhysicalDevice(context); err != nil {
		return err
	}

	device := context.Device

	rtSupported := deviceSupportsExtensions(device.PhysicalDevice, rayTracingExtensionNames)
	if !rtSupported {
		if requireRayTracing {
			err := fmt.Errorf("device '%s' lacks the ray tracing extensions: %w",
				vulkanExtensionName(device.Properties.DeviceName), core.ErrMissingCapability)
			core.LogError(err.Error())
			return err
		}
		core.LogWarn("Ray tracing extensions not present, falling back to rasterization only.")
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	presentSharesGraphicsQueue := device.GraphicsQueueIndex == device.PresentQueueIndex
	indexCount := 1
	if !presentSharesGraphicsQueue {
		indexCount++
	}
	indices := []uint32{uint32(device.GraphicsQueueIndex)}
	if !presentSharesGraphicsQueue {
		indices = append(indices, uint32(device.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, indexCount)
	for i := 0; i < indexCount; i++ {
		queueCreateInfos[i].SType = vk.StructureTypeDeviceQueueCreateInfo
		queueCreateInfos[i].QueueFamilyIndex = indices[i]
		queueCreateInfos[i].QueueCount = 1
		queueCreateInfos[i].PQueuePriorities = []float32{1.0}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if deviceSupportsExtensions(device.PhysicalDevice, []string{"VK_KHR_portability_subset"}) {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}
	if rtSupported {
		extensionNames = append(extensionNames, rayTracingExtensionNames...)
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(indexCount),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	// Acceleration structure builds and the shader binding table need buffer
	// device addresses; the feature structs chain onto device creation.
	if rtSupported {
		featureChain := newRayTracingFeatureChain()
		defer featureChain.Free()
		deviceCreateInfo.PNext = featureChain.Head()
	}

	if res := vk.CreateDevice(
		device.PhysicalDevice,
		&deviceCreateInfo,
		context.Allocator,
		&device.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("failed to create logical device: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Logical device created.")

	context.Registry.Track("device", "logical device", func() {
		if device.LogicalDevice != nil {
			vk.DestroyDevice(device.LogicalDevice, context.Allocator)
			device.LogicalDevice = nil
		}
	})

	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.GraphicsQueueIndex), 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.PresentQueueIndex), 0, &device.PresentQueue)
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(
		device.LogicalDevice,
		&poolCreateInfo,
		context.Allocator,
		&device.GraphicsCommandPool); res != vk.Success {
		err := fmt.Errorf("failed to create graphics command pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Graphics command pool created.")
	context.Registry.Track("command_pool", "graphics command pool", func() {
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
	})

	if rtSupported {
		if err := loadRayTracingProcs(device.LogicalDevice); err != nil {
			if requireRayTracing {
				core.LogError(err.Error())
				return err
			}
			core.LogWarn("%s, falling back to rasterization only.", err.Error())
		} else {
			queryRayTracingProperties(device)
			device.RayTracing.Supported = true
			core.LogInfo("Ray tracing enabled: handle size %d, base alignment %d, max recursion %d.",
				device.RayTracing.ShaderGroupHandleSize,
				device.RayTracing.ShaderGroupBaseAlignment,
				device.RayTracing.MaxRayRecursionDepth)
		}
	}

	return nil
}

// queryRayTracingProperties fetches the alignment rules the shader binding
// table layout is computed from, plus the geometry limits builds are
// validated against.
func queryRayTracingProperties(device *VulkanDevice) {
	rtProperties, asProperties := GetPhysicalDeviceRayTracingProperties(device.PhysicalDevice)

	device.RayTracing.ShaderGroupHandleSize = rtProperties.ShaderGroupHandleSize
	device.RayTracing.ShaderGroupHandleAlignment = rtProperties.ShaderGroupHandleAlignment
	device.RayTracing.ShaderGroupBaseAlignment = rtProperties.ShaderGroupBaseAlignment
	device.RayTracing.MaxRayRecursionDepth = rtProperties.MaxRayRecursionDepth
	device.RayTracing.MaxPrimitiveCount = asProperties.MaxPrimitiveCount
	device.RayTracing.MinAccelerationStructureScratchOffsetAlignment = asProperties.MinAccelerationStructureScratchOffsetAlignment
}

func DeviceDestroy(context *VulkanContext) {
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil
	context.Device.PhysicalDevice = nil
	context.Device.GraphicsQueueIndex = -1
	context.Device.PresentQueueIndex = -1
}

func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureDepthStencilAttachmentBit
	for _, candidate := range candidates {
		properties := vk.FormatProperties{}
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if (vk.FormatFeatureFlagBits(properties.LinearTilingFeatures) & flags) == flags {
			device.DepthFormat = candidate
			return true
		} else if (vk.FormatFeatureFlagBits(properties.OptimalTilingFeatures) & flags) == flags {
			device.DepthFormat = candidate
			return true
		}
	}
	return false
}

func selectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32 = 0
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res))
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrNoSuitableDevice)
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return fmt.Errorf("failed to enumerate physical devices: %s", VulkanResultString(res))
	}

	requirements := vulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DiscreteGPU:          true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
	if runtime.GOOS == "darwin" {
		requirements.DiscreteGPU = false
	}

	for i := 0; i < int(physicalDeviceCount); i++ {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties)
		properties.Deref()

		features := vk.PhysicalDeviceFeatures{}
		vk.GetPhysicalDeviceFeatures(physicalDevices[i], &features)
		features.Deref()

		memory := vk.PhysicalDeviceMemoryProperties{}
		vk.GetPhysicalDeviceMemoryProperties(physicalDevices[i], &memory)
		memory.Deref()

		queueInfo := vulkanPhysicalDeviceQueueFamilyInfo{}
		if !physicalDeviceMeetsRequirements(physicalDevices[i], context.Surface, &properties, &requirements, &queueInfo) {
			continue
		}

		core.LogInfo("Selected device: '%s'.", vulkanExtensionName(properties.DeviceName))
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		core.LogInfo(
			"Vulkan API version: %d.%d.%d",
			vk.Version.Major(vk.Version(properties.ApiVersion)),
			vk.Version.Minor(vk.Version(properties.ApiVersion)),
			vk.Version.Patch(vk.Version(properties.ApiVersion)),
		)

		context.Device.PhysicalDevice = physicalDevices[i]
		context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
		context.Device.PresentQueueIndex = queueInfo.PresentFamilyIndex

		// Keep a copy of properties, features and memory info for later use.
		context.Device.Properties = properties
		context.Device.Features = features
		context.Device.Memory = memory
		break
	}

	if context.Device.PhysicalDevice == nil {
		err := fmt.Errorf("no physical device meets the requirements: %w", core.ErrNoSuitableDevice)
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Physical device selected.")
	return nil
}

func physicalDeviceMeetsRequirements(
	device vk.PhysicalDevice,
	surface vk.Surface,
	properties *vk.PhysicalDeviceProperties,
	requirements *vulkanPhysicalDeviceRequirements,
	outQueueInfo *vulkanPhysicalDeviceQueueFamilyInfo,
) bool {
	outQueueInfo.GraphicsFamilyIndex = -1
	outQueueInfo.PresentFamilyIndex = -1

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device is not a discrete GPU, and one is required. Skipping.")
		return false
	}

	var queueFamilyCount uint32 = 0
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := 0; i < int(queueFamilyCount); i++ {
		queueFamilies[i].Deref()
		if outQueueInfo.GraphicsFamilyIndex < 0 &&
			vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit > 0 {
			outQueueInfo.GraphicsFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return false
		}
		if outQueueInfo.PresentFamilyIndex < 0 && supportsPresent == vk.True {
			outQueueInfo.PresentFamilyIndex = int32(i)
		}
	}

	if requirements.Graphics && outQueueInfo.GraphicsFamilyIndex < 0 {
		return false
	}
	if requirements.Present && outQueueInfo.PresentFamilyIndex < 0 {
		return false
	}
	if !deviceSupportsExtensions(device, requirements.DeviceExtensionNames) {
		core.LogInfo("Required device extensions not found, skipping device.")
		return false
	}

	core.LogDebug("Graphics Family Index: %d", outQueueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", outQueueInfo.PresentFamilyIndex)
	return true
}

func deviceSupportsExtensions(device vk.PhysicalDevice, names []string) bool {
	var availableExtensionCount uint32 = 0
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, nil); res != vk.Success {
		return false
	}
	if availableExtensionCount == 0 {
		return len(names) == 0
	}
	availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, availableExtensions); res != vk.Success {
		return false
	}
	available := make(map[string]bool, availableExtensionCount)
	for i := range availableExtensions {
		availableExtensions[i].Deref()
		available[vulkanExtensionName(availableExtensions[i].ExtensionName)] = true
	}
	for _, name := range names {
		if !available[name] {
			return false
		}
	}
	return true
}
