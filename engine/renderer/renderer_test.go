package renderer

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/theHamsta/go-rtx-renderer/engine/assets"
	"github.com/theHamsta/go-rtx-renderer/engine/config"
	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/mesh"
	"github.com/theHamsta/go-rtx-renderer/engine/platform"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/shader"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/vulkan"
)

type stubBackend struct {
	rayTracing  bool
	initCalls   int
	reloadCalls int
	reloadErr   error
	lastRay     []*shader.Group
	shutdowns   int
}

func (s *stubBackend) Initialize(appName string, m *mesh.Mesh, rasterGroups, rayGroups []*shader.Group) error {
	s.initCalls++
	return nil
}

func (s *stubBackend) RayTracingSupported() bool { return s.rayTracing }

func (s *stubBackend) RenderFrame(mode vulkan.RenderMode, wireframe bool, pushConstants []byte) error {
	return nil
}

func (s *stubBackend) ReloadRayTracingPipeline(groups []*shader.Group) error {
	s.reloadCalls++
	s.lastRay = groups
	return s.reloadErr
}

func (s *stubBackend) Resized(width, height uint32) {}

func (s *stubBackend) Shutdown() { s.shutdowns++ }

func writeShaderFixture(t *testing.T, dir, name, manifest string) {
	t.Helper()
	raw := make([]byte, 20)
	for i, w := range []uint32{shader.SPIRV_MAGIC, 0x00010500, 0, 1, 0} {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".spv"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".toml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
}

func fixtureCatalog(t *testing.T) *assets.Catalog {
	t.Helper()
	dir := t.TempDir()
	writeShaderFixture(t, dir, "triangle_vert", "stage = \"vertex\"\n")
	writeShaderFixture(t, dir, "triangle_frag", "stage = \"fragment\"\n")
	writeShaderFixture(t, dir, "trace_rgen", "stage = \"raygen\"\n")
	writeShaderFixture(t, dir, "trace_rmiss", "stage = \"miss\"\n")
	writeShaderFixture(t, dir, "trace_rchit", "stage = \"closest-hit\"\n")
	return assets.NewCatalog(dir)
}

func newTestRenderer(t *testing.T, backend *stubBackend) *Renderer {
	t.Helper()
	if err := core.EventsInitialize(); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	r := &Renderer{
		backend:  backend,
		platform: &platform.Platform{},
		cfg:      cfg,
		catalog:  fixtureCatalog(t),
	}
	r.rayTracing.Store(cfg.Renderer.Mode == config.RenderModeRayTrace)
	return r
}

func TestInitializeDegradesWithoutRayTracing(t *testing.T) {
	backend := &stubBackend{rayTracing: false}
	r := newTestRenderer(t, backend)

	if err := r.Initialize(mesh.Cube(1)); err != nil {
		t.Fatal(err)
	}
	if backend.initCalls != 1 {
		t.Fatalf("backend initialized %d times", backend.initCalls)
	}
	if r.rayTracing.Load() {
		t.Error("ray tracing mode should degrade to raster on unsupported devices")
	}
}

func TestRenderModeEventRejectedWithoutSupport(t *testing.T) {
	backend := &stubBackend{rayTracing: false}
	r := newTestRenderer(t, backend)
	r.rayTracing.Store(false)

	ctx := core.EventContext{}
	ctx.Data.U8[0] = 1
	r.onRenderMode(core.EVENT_CODE_RENDER_MODE, nil, ctx)
	if r.rayTracing.Load() {
		t.Error("mode switched despite missing device support")
	}
}

func TestRenderStyleEventTogglesWireframe(t *testing.T) {
	r := newTestRenderer(t, &stubBackend{})
	if r.wireframe.Load() {
		t.Fatal("wireframe should start off")
	}
	r.onRenderStyle(core.EVENT_CODE_RENDER_STYLE, nil, core.EventContext{})
	if !r.wireframe.Load() {
		t.Error("first toggle should enable wireframe")
	}
	r.onRenderStyle(core.EVENT_CODE_RENDER_STYLE, nil, core.EventContext{})
	if r.wireframe.Load() {
		t.Error("second toggle should disable wireframe")
	}
}

func TestReloadPassesRayGroupsOnly(t *testing.T) {
	backend := &stubBackend{rayTracing: true}
	r := newTestRenderer(t, backend)

	r.reloadShaders()
	if backend.reloadCalls != 1 {
		t.Fatalf("reload called %d times, want 1", backend.reloadCalls)
	}
	if len(backend.lastRay) != 3 {
		t.Fatalf("got %d ray groups, want 3", len(backend.lastRay))
	}
	for _, g := range backend.lastRay {
		if !g.Stage.IsRayTracing() {
			t.Errorf("stage %v leaked into the ray tracing group set", g.Stage)
		}
	}
}

func TestReloadFailureKeepsBackendAlive(t *testing.T) {
	backend := &stubBackend{rayTracing: true, reloadErr: errors.New("compile failed")}
	r := newTestRenderer(t, backend)

	r.reloadShaders()
	if backend.shutdowns != 0 {
		t.Error("a failed reload must not tear the backend down")
	}

	// A broken catalog must not reach the backend at all.
	r.catalog = assets.NewCatalog(filepath.Join(t.TempDir(), "missing"))
	before := backend.reloadCalls
	r.reloadShaders()
	if backend.reloadCalls != before {
		t.Error("reload dispatched groups from an unreadable catalog")
	}
}
