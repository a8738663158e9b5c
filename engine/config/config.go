package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const (
	RenderModeRaster   = "raster"
	RenderModeRayTrace = "raytrace"
)

// Config holds the session settings read from renderer.toml. Every field has
// a usable default so a missing file still produces a runnable session.
type Config struct {
	AppName string `toml:"app_name"`

	Window struct {
		Width  uint32 `toml:"width"`
		Height uint32 `toml:"height"`
		X      uint32 `toml:"x"`
		Y      uint32 `toml:"y"`
	} `toml:"window"`

	Renderer struct {
		// "raster" or "raytrace". Ray tracing silently degrades to raster
		// when the device lacks the extensions.
		Mode           string `toml:"mode"`
		FramesInFlight uint8  `toml:"frames_in_flight"`
		Wireframe      bool   `toml:"wireframe"`
		NoRaytracing   bool   `toml:"no_raytracing"`
		// Upper bound in bytes for a single shader binding table record,
		// header included. Exceeding it is a fatal build error.
		SBTRecordBudget uint32 `toml:"sbt_record_budget"`
	} `toml:"renderer"`

	Assets struct {
		ShaderDir string `toml:"shader_dir"`
		MeshFile  string `toml:"mesh_file"`
	} `toml:"assets"`
}

func Default() *Config {
	cfg := &Config{AppName: "go-rtx-renderer"}
	cfg.Window.Width = 1280
	cfg.Window.Height = 720
	cfg.Window.X = 100
	cfg.Window.Y = 100
	cfg.Renderer.Mode = RenderModeRayTrace
	cfg.Renderer.FramesInFlight = 2
	cfg.Renderer.SBTRecordBudget = 64
	cfg.Assets.ShaderDir = "assets/shaders"
	return cfg
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Renderer.Mode != RenderModeRaster && c.Renderer.Mode != RenderModeRayTrace {
		return fmt.Errorf("renderer.mode must be \"raster\" or \"raytrace\", got %q", c.Renderer.Mode)
	}
	if c.Renderer.FramesInFlight < 1 || c.Renderer.FramesInFlight > 3 {
		return fmt.Errorf("renderer.frames_in_flight must be within [1,3], got %d", c.Renderer.FramesInFlight)
	}
	if c.Renderer.SBTRecordBudget < 32 {
		return fmt.Errorf("renderer.sbt_record_budget must be at least 32 bytes, got %d", c.Renderer.SBTRecordBudget)
	}
	return nil
}
