package vulkan

import (
	"errors"
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/theHamsta/go-rtx-renderer/engine/config"
	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/mesh"
	"github.com/theHamsta/go-rtx-renderer/engine/platform"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/frame"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/registry"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/sbt"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/shader"
)

// RenderMode selects the frame recording path.
type RenderMode int

const (
	RenderModeRaster RenderMode = iota
	RenderModeRayTrace
)

type VulkanRenderer struct {
	platform *platform.Platform
	context  *VulkanContext
	cfg      *config.Config

	ring                     *frame.Ring
	imageAvailableSemaphores []vk.Semaphore
	queueCompleteSemaphores  []vk.Semaphore
	commandBuffers           []*VulkanCommandBuffer

	renderpass   *VulkanRenderpass
	framebuffers []*VulkanFramebuffer

	mesh *VulkanMesh
	blas *VulkanAccelerationStructure
	tlas *VulkanAccelerationStructure

	rasterLayout    *shader.Layout
	rasterResources *VulkanDescriptorResources
	fillPipeline    *VulkanPipeline
	wirePipeline    *VulkanPipeline

	rtLayout    *shader.Layout
	rtResources *VulkanDescriptorResources
	rtPipeline  *VulkanRayTracingPipeline
	sbtable     *VulkanShaderBindingTable
	outputImage *VulkanImage

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32
}

func New(p *platform.Platform, cfg *config.Config) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		cfg:      cfg,
		context: &VulkanContext{
			Device:   &VulkanDevice{GraphicsQueueIndex: -1, PresentQueueIndex: -1},
			Registry: registry.New(),
		},
	}
}

// RayTracingSupported reports whether the selected device carries the ray
// tracing extension set.
func (vr *VulkanRenderer) RayTracingSupported() bool {
	return vr.context.Device.RayTracing.Supported
}

// Initialize brings the whole GPU side up: instance, surface, device,
// swapchain, mesh upload, both acceleration structure levels, the shader
// binding table and both pipelines. Creation order matters; every object
// lands in the teardown registry so Shutdown can unwind it in reverse.
func (vr *VulkanRenderer) Initialize(appName string, m *mesh.Mesh, rasterGroups, rayGroups []*shader.Group) error {
	width, height := vr.platform.FramebufferSize()
	vr.context.FramebufferWidth = uint32(width)
	vr.context.FramebufferHeight = uint32(height)
	vr.cachedFramebufferWidth = uint32(width)
	vr.cachedFramebufferHeight = uint32(height)

	if err := vr.createInstance(appName); err != nil {
		return err
	}

	surface, err := vr.platform.CreateSurface(vr.context.Instance)
	if err != nil {
		core.LogError("Vulkan surface creation failed.")
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	vr.context.Registry.Track("surface", "window surface", func() {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
	})

	requireRayTracing := vr.cfg.Renderer.Mode == config.RenderModeRayTrace && !vr.cfg.Renderer.NoRaytracing
	if err := DeviceCreate(vr.context, requireRayTracing); err != nil {
		return err
	}

	vr.context.Swapchain, err = SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}

	vr.renderpass, err = RenderpassCreate(vr.context,
		0, 0,
		float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight),
		0.0, 0.0, 0.1, 1.0,
		1.0, 0)
	if err != nil {
		return err
	}
	if err := vr.createFramebuffers(); err != nil {
		return err
	}

	if err := vr.createFrameResources(); err != nil {
		return err
	}

	// Mesh and acceleration structures.
	vr.mesh, err = MeshUpload(vr.context, "scene mesh", m)
	if err != nil {
		return err
	}
	if vr.context.Device.RayTracing.Supported {
		vr.blas, err = BuildBLAS(vr.context, "blas",
			vr.mesh.VertexAddress, vr.mesh.VertexCount,
			vr.mesh.IndexAddress, vr.mesh.TriangleCount)
		if err != nil {
			return err
		}
		identity := [12]float32{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
		}
		vr.tlas, err = BuildTLAS(vr.context, "tlas",
			[][]byte{InstanceData(identity, 0, 0, vr.blas.DeviceAddress)})
		if err != nil {
			return err
		}
	}

	if err := vr.createRasterPipelines(rasterGroups); err != nil {
		return err
	}
	if vr.context.Device.RayTracing.Supported {
		if err := vr.createRayTracingResources(rayGroups); err != nil {
			return err
		}
	}

	core.LogInfo("Vulkan renderer initialized.")
	return nil
}

func (vr *VulkanRenderer) createInstance(appName string) error {
	requiredExtensions := vr.platform.RequiredInstanceExtensions()
	requiredExtensions = append(requiredExtensions, vk.KhrGetPhysicalDeviceProperties2ExtensionName)

	applicationInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("go-rtx-renderer"),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
	}
	instanceCreateInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        applicationInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(requiredExtensions),
	}

	if res := vk.CreateInstance(&instanceCreateInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create vulkan instance: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		return err
	}
	vr.context.Registry.Track("instance", "vulkan instance", func() {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	})
	core.LogInfo("Vulkan instance created.")
	return nil
}

func (vr *VulkanRenderer) createFramebuffers() error {
	swapchain := vr.context.Swapchain
	vr.framebuffers = make([]*VulkanFramebuffer, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		attachments := []vk.ImageView{swapchain.Views[i], swapchain.DepthAttachment.View}
		framebuffer, err := FramebufferCreate(vr.context, vr.renderpass,
			swapchain.Extent.Width, swapchain.Extent.Height, attachments)
		if err != nil {
			return err
		}
		vr.framebuffers[i] = framebuffer
	}
	return nil
}

func (vr *VulkanRenderer) createFrameResources() error {
	framesInFlight := int(vr.cfg.Renderer.FramesInFlight)

	waiters := make([]frame.Waiter, framesInFlight)
	for i := 0; i < framesInFlight; i++ {
		fence, err := NewFence(vr.context, fmt.Sprintf("frame fence %d", i), true)
		if err != nil {
			return err
		}
		waiters[i] = fence
	}
	ring, err := frame.NewRing(waiters, frame.DEFAULT_FENCE_TIMEOUT)
	if err != nil {
		return err
	}
	vr.ring = ring

	vr.imageAvailableSemaphores = make([]vk.Semaphore, framesInFlight)
	vr.queueCompleteSemaphores = make([]vk.Semaphore, framesInFlight)
	vr.commandBuffers = make([]*VulkanCommandBuffer, framesInFlight)
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	for i := 0; i < framesInFlight; i++ {
		i := i
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.imageAvailableSemaphores[i]); res != vk.Success {
			return fmt.Errorf("failed to create semaphore: %s", VulkanResultString(res))
		}
		vr.context.Registry.Track("semaphore", fmt.Sprintf("image available %d", i), func() {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.imageAvailableSemaphores[i], vr.context.Allocator)
		})
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.queueCompleteSemaphores[i]); res != vk.Success {
			return fmt.Errorf("failed to create semaphore: %s", VulkanResultString(res))
		}
		vr.context.Registry.Track("semaphore", fmt.Sprintf("queue complete %d", i), func() {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.queueCompleteSemaphores[i], vr.context.Allocator)
		})

		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.commandBuffers[i] = cb
	}
	return nil
}

func (vr *VulkanRenderer) createRasterPipelines(groups []*shader.Group) error {
	layout, err := shader.MergeLayout(groups)
	if err != nil {
		return err
	}
	vr.rasterLayout = layout

	resources, err := DescriptorResourcesCreate(vr.context, "raster", layout)
	if err != nil {
		return err
	}
	vr.rasterResources = resources

	var vertModule, fragModule vk.ShaderModule
	for _, g := range groups {
		module, err := ShaderModuleCreate(vr.context, g)
		if err != nil {
			return err
		}
		switch g.Stage {
		case shader.StageVertex:
			vertModule = module
		case shader.StageFragment:
			fragModule = module
		}
	}
	if vertModule == vk.NullShaderModule || fragModule == vk.NullShaderModule {
		return fmt.Errorf("raster pipeline needs a vertex and a fragment shader: %w", core.ErrUnsupportedStage)
	}

	vr.fillPipeline, err = GraphicsPipelineCreate(vr.context, vr.renderpass, layout, resources, vertModule, fragModule, false)
	if err != nil {
		return err
	}
	vr.wirePipeline, err = GraphicsPipelineCreate(vr.context, vr.renderpass, layout, resources, vertModule, fragModule, true)
	return err
}

func (vr *VulkanRenderer) createRayTracingResources(groups []*shader.Group) error {
	layout, err := shader.MergeLayout(groups)
	if err != nil {
		return err
	}
	vr.rtLayout = layout

	resources, err := DescriptorResourcesCreate(vr.context, "ray tracing", layout)
	if err != nil {
		return err
	}

	var raygenModule, missModule, closestHitModule vk.ShaderModule
	for _, g := range groups {
		module, err := ShaderModuleCreate(vr.context, g)
		if err != nil {
			return err
		}
		switch g.Stage {
		case shader.StageRaygen:
			raygenModule = module
		case shader.StageMiss:
			missModule = module
		case shader.StageClosestHit:
			closestHitModule = module
		}
	}
	if raygenModule == vk.NullShaderModule || missModule == vk.NullShaderModule || closestHitModule == vk.NullShaderModule {
		return fmt.Errorf("ray tracing needs raygen, miss and closest hit shaders: %w", core.ErrUnsupportedStage)
	}

	pipeline, err := RayTracingPipelineCreate(vr.context, layout, resources, raygenModule, missModule, closestHitModule)
	if err != nil {
		return err
	}

	table, err := ShaderBindingTableCreate(vr.context, pipeline.Handle, RAY_TRACING_GROUP_COUNT,
		sbt.Record{GroupIndex: RAYGEN_GROUP_INDEX},
		[]sbt.Record{{GroupIndex: MISS_GROUP_INDEX}},
		[]sbt.Record{{
			GroupIndex: CLOSEST_HIT_GROUP_INDEX,
			Payload:    sbt.HitPayload(vr.mesh.IndexAddress, vr.mesh.NormalAddress),
		}},
		uint32(vr.cfg.Renderer.SBTRecordBudget))
	if err != nil {
		return err
	}

	outputImage, err := vr.createOutputImage()
	if err != nil {
		return err
	}

	RayTracingDescriptorUpdate(vr.context, resources, vr.tlas, outputImage)

	vr.rtResources = resources
	vr.rtPipeline = pipeline
	vr.sbtable = table
	vr.outputImage = outputImage
	return nil
}

func (vr *VulkanRenderer) createOutputImage() (*VulkanImage, error) {
	return ImageCreate(vr.context, "ray tracing output",
		vr.context.Swapchain.Extent.Width,
		vr.context.Swapchain.Extent.Height,
		vr.context.Swapchain.ImageFormat.Format,
		vk.ImageUsageFlags(vk.ImageUsageStorageBit|vk.ImageUsageTransferSrcBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
}

// ReloadRayTracingPipeline swaps in a pipeline built from freshly compiled
// shaders. The current pipeline keeps rendering if any step fails; nothing
// is released until the replacement is fully constructed.
func (vr *VulkanRenderer) ReloadRayTracingPipeline(groups []*shader.Group) error {
	if !vr.context.Device.RayTracing.Supported {
		return fmt.Errorf("cannot reload ray tracing shaders: %w", core.ErrMissingCapability)
	}

	layout, err := shader.MergeLayout(groups)
	if err != nil {
		return err
	}
	resources, err := DescriptorResourcesCreate(vr.context, "ray tracing (reload)", layout)
	if err != nil {
		return err
	}

	var raygenModule, missModule, closestHitModule vk.ShaderModule
	for _, g := range groups {
		module, err := ShaderModuleCreate(vr.context, g)
		if err != nil {
			return err
		}
		switch g.Stage {
		case shader.StageRaygen:
			raygenModule = module
		case shader.StageMiss:
			missModule = module
		case shader.StageClosestHit:
			closestHitModule = module
		}
	}

	pipeline, err := RayTracingPipelineCreate(vr.context, layout, resources, raygenModule, missModule, closestHitModule)
	if err != nil {
		return err
	}
	table, err := ShaderBindingTableCreate(vr.context, pipeline.Handle, RAY_TRACING_GROUP_COUNT,
		sbt.Record{GroupIndex: RAYGEN_GROUP_INDEX},
		[]sbt.Record{{GroupIndex: MISS_GROUP_INDEX}},
		[]sbt.Record{{
			GroupIndex: CLOSEST_HIT_GROUP_INDEX,
			Payload:    sbt.HitPayload(vr.mesh.IndexAddress, vr.mesh.NormalAddress),
		}},
		uint32(vr.cfg.Renderer.SBTRecordBudget))
	if err != nil {
		return err
	}

	// The old pipeline may still be referenced by an in-flight frame.
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	RayTracingDescriptorUpdate(vr.context, resources, vr.tlas, vr.outputImage)

	oldTable := vr.sbtable
	vr.rtLayout = layout
	vr.rtResources = resources
	vr.rtPipeline = pipeline
	vr.sbtable = table
	if oldTable != nil {
		oldTable.Release(vr.context)
	}
	core.LogInfo("Ray tracing pipeline reloaded.")
	return nil
}

// RebuildTLAS replaces the top level structure with one built over the new
// instance transform and repoints the descriptors at it. The superseded
// structure is released only after the swap.
func (vr *VulkanRenderer) RebuildTLAS(transform [12]float32) error {
	if !vr.context.Device.RayTracing.Supported {
		return fmt.Errorf("cannot rebuild top level structure: %w", core.ErrMissingCapability)
	}
	newTLAS, err := BuildTLAS(vr.context, "tlas",
		[][]byte{InstanceData(transform, 0, 0, vr.blas.DeviceAddress)})
	if err != nil {
		return err
	}
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	RayTracingDescriptorUpdate(vr.context, vr.rtResources, newTLAS, vr.outputImage)

	oldTLAS := vr.tlas
	vr.tlas = newTLAS
	return oldTLAS.Release(vr.context)
}

// Resized records the new framebuffer size. The swapchain is recreated
// lazily at the next frame via the generation counters.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++
	core.LogDebug("Framebuffer resized to %dx%d, generation %d.", width, height, vr.context.FramebufferSizeGeneration)
}

func (vr *VulkanRenderer) recreateSwapchain() error {
	if vr.context.RecreatingSwapchain {
		return nil
	}
	if vr.cachedFramebufferWidth == 0 || vr.cachedFramebufferHeight == 0 {
		// Minimized. Wait for a real size.
		return nil
	}
	vr.context.RecreatingSwapchain = true
	defer func() { vr.context.RecreatingSwapchain = false }()

	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	if err := vr.ring.WaitIdle(); err != nil {
		return err
	}

	for _, framebuffer := range vr.framebuffers {
		framebuffer.Release(vr.context)
	}
	vr.framebuffers = nil

	swapchain, err := vr.context.Swapchain.SwapchainRecreate(vr.context, vr.cachedFramebufferWidth, vr.cachedFramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = swapchain
	vr.context.FramebufferWidth = swapchain.Extent.Width
	vr.context.FramebufferHeight = swapchain.Extent.Height
	vr.renderpass.W = float32(swapchain.Extent.Width)
	vr.renderpass.H = float32(swapchain.Extent.Height)

	if err := vr.createFramebuffers(); err != nil {
		return err
	}

	if vr.outputImage != nil {
		vr.outputImage.Release(vr.context)
		vr.outputImage, err = vr.createOutputImage()
		if err != nil {
			return err
		}
		RayTracingDescriptorUpdate(vr.context, vr.rtResources, vr.tlas, vr.outputImage)
	}

	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration
	return nil
}

// RenderFrame runs one frame through the mode's recording path. A frame can
// come back without rendering when the swapchain is mid-recreation; the
// caller just tries again next tick.
func (vr *VulkanRenderer) RenderFrame(mode RenderMode, wireframe bool, pushConstants []byte) error {
	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		if err := vr.recreateSwapchain(); err != nil {
			return err
		}
		if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
			// Still minimized.
			return nil
		}
	}

	if mode == RenderModeRayTrace && vr.rtPipeline == nil {
		return fmt.Errorf("ray tracing pipeline not available: %w", core.ErrMissingCapability)
	}

	slot, err := vr.ring.Begin()
	if err != nil {
		return err
	}

	imageIndex, err := vr.context.Swapchain.SwapchainAcquireNextImageIndex(
		vr.context,
		uint64(time.Second.Nanoseconds()),
		vr.imageAvailableSemaphores[slot.Index],
		vk.NullFence)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainOutOfDate) {
			vr.context.FramebufferSizeGeneration++
			return nil
		}
		return err
	}
	vr.context.ImageIndex = imageIndex

	cb := vr.commandBuffers[slot.Index]
	cb.Reset()
	if err := cb.Begin(false); err != nil {
		return err
	}

	switch mode {
	case RenderModeRayTrace:
		CmdTraceRays(vr.context, cb, vr.rtPipeline, vr.sbtable, vr.rtResources, vr.outputImage, pushConstants, imageIndex)
	default:
		vr.recordRasterPass(cb, imageIndex, wireframe, pushConstants)
	}

	if err := cb.End(); err != nil {
		return err
	}

	fence := slot.Waiter.(*VulkanFence)
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.imageAvailableSemaphores[slot.Index]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.queueCompleteSemaphores[slot.Index]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
	}
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
		return fmt.Errorf("queue submit failed: %s", VulkanResultString(res))
	}
	cb.UpdateSubmitted()
	vr.ring.End(slot)

	err = vr.context.Swapchain.SwapchainPresent(
		vr.context,
		vr.context.Device.PresentQueue,
		vr.queueCompleteSemaphores[slot.Index],
		imageIndex)
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		vr.context.FramebufferSizeGeneration++
		return nil
	}
	return err
}

func (vr *VulkanRenderer) recordRasterPass(cb *VulkanCommandBuffer, imageIndex uint32, wireframe bool, pushConstants []byte) {
	vr.renderpass.RenderpassBegin(cb, vr.framebuffers[imageIndex].Handle)

	pipeline := vr.fillPipeline
	if wireframe {
		pipeline = vr.wirePipeline
	}
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)

	viewport := vk.Viewport{
		X: 0, Y: float32(vr.context.FramebufferHeight),
		Width:    float32(vr.context.FramebufferWidth),
		Height:   -float32(vr.context.FramebufferHeight),
		MinDepth: 0, MaxDepth: 1,
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
	}
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

	if len(pushConstants) > 0 {
		vk.CmdPushConstants(
			cb.Handle,
			pipeline.PipelineLayout,
			vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit),
			0,
			uint32(len(pushConstants)),
			pushConstantsPointer(pushConstants))
	}

	vk.CmdBindVertexBuffers(cb.Handle, 0, 2,
		[]vk.Buffer{vr.mesh.VertexBuffer.Handle, vr.mesh.NormalBuffer.Handle},
		[]vk.DeviceSize{0, 0})
	vk.CmdBindIndexBuffer(cb.Handle, vr.mesh.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cb.Handle, vr.mesh.IndexCount, 1, 0, 0, 0)

	vr.renderpass.RenderpassEnd(cb)
}

// Shutdown drains the device and unwinds every tracked object in reverse
// creation order.
func (vr *VulkanRenderer) Shutdown() {
	if vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
		if err := vr.ring.WaitIdle(); err != nil {
			core.LogWarn("frame drain during shutdown: %v", err)
		}
		for _, cb := range vr.commandBuffers {
			cb.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}
	core.LogInfo("Tearing down %d GPU objects.", vr.context.Registry.Len())
	vr.context.Registry.TeardownAll()
	DeviceDestroy(vr.context)
	core.LogInfo("Vulkan renderer shut down.")
}
