package renderer

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/theHamsta/go-rtx-renderer/engine/assets"
	"github.com/theHamsta/go-rtx-renderer/engine/config"
	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/mesh"
	"github.com/theHamsta/go-rtx-renderer/engine/platform"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/shader"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/vulkan"
)

// Backend is the device-facing half of the renderer. The production
// implementation is vulkan.VulkanRenderer.
type Backend interface {
	Initialize(appName string, m *mesh.Mesh, rasterGroups, rayGroups []*shader.Group) error
	RayTracingSupported() bool
	RenderFrame(mode vulkan.RenderMode, wireframe bool, pushConstants []byte) error
	ReloadRayTracingPipeline(groups []*shader.Group) error
	Resized(width, height uint32)
	Shutdown()
}

// Renderer is the frontend: it owns mode and style state, feeds camera
// derived push constants to the backend every frame and coordinates shader
// hot reload. Event callbacks only flip atomics; all GPU work stays on the
// render thread.
type Renderer struct {
	backend  Backend
	platform *platform.Platform
	cfg      *config.Config
	catalog  *assets.Catalog

	centroid mgl32.Vec3

	rayTracing    atomic.Bool
	wireframe     atomic.Bool
	reloadPending atomic.Bool
}

func New(p *platform.Platform, cfg *config.Config, catalog *assets.Catalog) *Renderer {
	r := &Renderer{
		backend:  vulkan.New(p, cfg),
		platform: p,
		cfg:      cfg,
		catalog:  catalog,
	}
	r.rayTracing.Store(cfg.Renderer.Mode == config.RenderModeRayTrace)
	r.wireframe.Store(cfg.Renderer.Wireframe)
	return r
}

// Initialize loads the shader catalog, brings the backend up and subscribes
// to the mode, style, resize and reload events.
func (r *Renderer) Initialize(m *mesh.Mesh) error {
	rasterGroups, rayGroups, err := r.catalog.LoadGroups()
	if err != nil {
		return err
	}
	r.centroid = m.Centroid()

	if err := r.backend.Initialize(r.cfg.AppName, m, rasterGroups, rayGroups); err != nil {
		return err
	}
	if r.rayTracing.Load() && !r.backend.RayTracingSupported() {
		core.LogWarn("Ray tracing unavailable, starting in raster mode.")
		r.rayTracing.Store(false)
	}

	core.EventRegister(core.EVENT_CODE_RESIZED, r, r.onResized)
	core.EventRegister(core.EVENT_CODE_RENDER_MODE, r, r.onRenderMode)
	core.EventRegister(core.EVENT_CODE_RENDER_STYLE, r, r.onRenderStyle)
	core.EventRegister(core.EVENT_CODE_SHADERS_CHANGED, r, r.onShadersChanged)
	return nil
}

func (r *Renderer) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	r.backend.Resized(context.Data.U32[0], context.Data.U32[1])
	return false
}

func (r *Renderer) onRenderMode(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	wantRayTracing := context.Data.U8[0] != 0
	if wantRayTracing && !r.backend.RayTracingSupported() {
		core.LogWarn("Ray tracing mode requested but the device does not support it.")
		return true
	}
	r.rayTracing.Store(wantRayTracing)
	core.LogInfo("Render mode: %s", map[bool]string{true: "ray tracing", false: "raster"}[wantRayTracing])
	return true
}

func (r *Renderer) onRenderStyle(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	wireframe := !r.wireframe.Load()
	r.wireframe.Store(wireframe)
	core.LogInfo("Wireframe: %t", wireframe)
	return true
}

func (r *Renderer) onShadersChanged(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	r.reloadPending.Store(true)
	return true
}

// DrawFrame renders one frame: apply any pending shader reload, derive the
// push constants from the camera and dispatch through the active mode.
func (r *Renderer) DrawFrame(angle float32) error {
	if r.reloadPending.Swap(false) {
		r.reloadShaders()
	}

	camera := r.platform.Camera()
	width, height := r.platform.FramebufferSize()
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}

	pc := NewPushConstants(camera, r.centroid, aspect, angle)
	if r.rayTracing.Load() {
		return r.backend.RenderFrame(vulkan.RenderModeRayTrace, false, pc.EncodeRayTracing())
	}
	return r.backend.RenderFrame(vulkan.RenderModeRaster, r.wireframe.Load(), pc.EncodeRaster())
}

// reloadShaders rebuilds the ray tracing pipeline from the current catalog
// contents. On any failure the previous pipeline keeps rendering.
func (r *Renderer) reloadShaders() {
	_, rayGroups, err := r.catalog.LoadGroups()
	if err != nil {
		core.LogError("shader reload failed, keeping current pipeline: %v", err)
		return
	}
	if !r.backend.RayTracingSupported() {
		return
	}
	if err := r.backend.ReloadRayTracingPipeline(rayGroups); err != nil {
		core.LogError("shader reload failed, keeping current pipeline: %v", err)
	}
}

func (r *Renderer) Shutdown() {
	r.backend.Shutdown()
}
