//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Shader sources and the SPIR-V binaries they compile to. The ray tracing
// stages need the vulkan1.2 target environment for GL_EXT_ray_tracing.
var shaders = []struct {
	source string
	output string
}{
	{"assets/shaders/triangle.vert", "assets/shaders/triangle_vert.spv"},
	{"assets/shaders/triangle.frag", "assets/shaders/triangle_frag.spv"},
	{"assets/shaders/trace.rgen", "assets/shaders/trace_rgen.spv"},
	{"assets/shaders/trace.rmiss", "assets/shaders/trace_rmiss.spv"},
	{"assets/shaders/trace.rchit", "assets/shaders/trace_rchit.spv"},
}

// Compiles every GLSL shader to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and then builds the renderer binary.
func (Build) Renderer() error {
	if err := buildShaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	for _, s := range shaders {
		args := []string{"--target-env=vulkan1.2", s.source, "-o", s.output}
		if _, err := executeCmd("glslc", withArgs(args...), withStream()); err != nil {
			return fmt.Errorf("failed to compile %s: %w", s.source, err)
		}
	}
	return nil
}
