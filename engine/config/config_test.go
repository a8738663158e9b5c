package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "renderer.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Renderer.FramesInFlight != 2 {
		t.Errorf("default frames_in_flight = %d, want 2", cfg.Renderer.FramesInFlight)
	}
	if cfg.Renderer.Mode != "raytrace" {
		t.Errorf("default mode = %q, want raytrace", cfg.Renderer.Mode)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
app_name = "viewer"

[renderer]
mode = "raster"
frames_in_flight = 3
wireframe = true

[assets]
mesh_file = "bunny.obj"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AppName != "viewer" {
		t.Errorf("app_name = %q", cfg.AppName)
	}
	if cfg.Renderer.Mode != "raster" || cfg.Renderer.FramesInFlight != 3 || !cfg.Renderer.Wireframe {
		t.Errorf("renderer section not applied: %+v", cfg.Renderer)
	}
	if cfg.Assets.MeshFile != "bunny.obj" {
		t.Errorf("mesh_file = %q", cfg.Assets.MeshFile)
	}
	// Untouched fields keep their defaults.
	if cfg.Assets.ShaderDir != "assets/shaders" {
		t.Errorf("shader_dir = %q", cfg.Assets.ShaderDir)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"bad mode":       "[renderer]\nmode = \"vector\"\n",
		"zero in flight": "[renderer]\nframes_in_flight = 0\n",
		"tiny budget":    "[renderer]\nsbt_record_budget = 8\n",
	} {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
