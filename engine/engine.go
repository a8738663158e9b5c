package engine

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/theHamsta/go-rtx-renderer/engine/assets"
	"github.com/theHamsta/go-rtx-renderer/engine/config"
	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/mesh"
	"github.com/theHamsta/go-rtx-renderer/engine/platform"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Rotation applied to the model per second of wall time, radians.
const modelSpinRate = 0.5

type Engine struct {
	currentStage Stage
	cfg          *config.Config
	platform     *platform.Platform
	renderer     *renderer.Renderer
	catalog      *assets.Catalog
	watcher      *assets.Watcher
	clock        *core.Clock
	stats        *core.FrameStats
	isRunning    bool
	isSuspended  bool
	width        uint32
	height       uint32
}

func New(cfg *config.Config) (*Engine, error) {
	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	catalog := assets.NewCatalog(cfg.Assets.ShaderDir)

	return &Engine{
		currentStage: EngineStageUninitialized,
		cfg:          cfg,
		platform:     p,
		renderer:     renderer.New(p, cfg, catalog),
		catalog:      catalog,
		clock:        core.NewClock(),
		stats:        core.NewFrameStats(),
		isRunning:    true,
		isSuspended:  false,
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := core.EventsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(e.cfg.AppName,
		e.cfg.Window.X,
		e.cfg.Window.Y,
		e.cfg.Window.Width,
		e.cfg.Window.Height); err != nil {
		return err
	}

	m, err := e.loadMesh()
	if err != nil {
		return err
	}

	if err := e.renderer.Initialize(m); err != nil {
		return err
	}

	w, err := assets.WatchShaders(e.catalog.Dir())
	if err != nil {
		core.LogWarn("Shader watch unavailable, hot reload disabled: %v", err)
	} else {
		e.watcher = w
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// loadMesh reads the configured OBJ file, falling back to the builtin cube
// when no file is configured or the file cannot be parsed.
func (e *Engine) loadMesh() (*mesh.Mesh, error) {
	if e.cfg.Assets.MeshFile == "" {
		core.LogInfo("No mesh file configured, using builtin cube.")
		return mesh.Cube(2), nil
	}
	m, err := mesh.LoadOBJ(e.cfg.Assets.MeshFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load mesh %s: %w", e.cfg.Assets.MeshFile, err)
	}
	if !m.HasVertexNormals() {
		core.LogDebug("Mesh %s carries no normals, generating flat normals.", filepath.Base(e.cfg.Assets.MeshFile))
	}
	core.LogInfo("Loaded mesh %s: %d vertices, %d triangles.",
		filepath.Base(e.cfg.Assets.MeshFile), m.NumVertices(), m.NumTriangles())
	return m, nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()

	lastMetricsLog := 0.0

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}

		if e.isSuspended || !e.isRunning {
			continue
		}

		e.clock.Update()
		frameStart := e.clock.Elapsed()
		angle := float32(modelSpinRate * frameStart)

		if err := e.renderer.DrawFrame(angle); err != nil {
			if errors.Is(err, core.ErrSwapchainOutOfDate) {
				continue
			}
			if core.IsFatal(err) {
				core.LogError("Frame failed, shutting down: %v", err)
				e.isRunning = false
				break
			}
			core.LogWarn("Frame skipped: %v", err)
			continue
		}

		e.clock.Update()
		e.stats.RecordFrame(e.clock.Elapsed() - frameStart)

		if e.clock.Elapsed()-lastMetricsLog > 5.0 {
			core.LogDebug("%.0f fps, %.2f ms/frame", e.stats.FPS(), e.stats.AverageFrameMS())
			lastMetricsLog = e.clock.Elapsed()
		}
	}

	return nil
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			core.LogError(err.Error())
		}
	}
	e.renderer.Shutdown()
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	return nil
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	width := context.Data.U32[0]
	height := context.Data.U32[1]

	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending rendering.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming rendering.")
		e.isSuspended = false
	}
	// Propagate so the renderer picks the resize up as well.
	return false
}
