package shader

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

/**
 * Each compiled shader ships with a sidecar manifest describing what the
 * stage reflects: its entry stage, descriptor bindings and push-constant
 * ranges. The manifest is authored next to the GLSL source and named
 * <shader>.toml alongside <shader>.spv.
 */

const SPIRV_MAGIC uint32 = 0x07230203

type manifestBinding struct {
	Set     uint32 `toml:"set"`
	Binding uint32 `toml:"binding"`
	Type    string `toml:"type"`
	Count   uint32 `toml:"count"`
}

type manifestPushConstants struct {
	Offset uint32 `toml:"offset"`
	Size   uint32 `toml:"size"`
}

type manifest struct {
	Stage         string                  `toml:"stage"`
	Bindings      []manifestBinding       `toml:"bindings"`
	PushConstants []manifestPushConstants `toml:"push_constants"`
}

// LoadGroup reads a compiled SPIR-V module and its sidecar manifest and
// returns the group ready for layout merging. spvPath names the .spv file;
// the manifest is expected at the same path with a .toml extension.
func LoadGroup(spvPath string) (*Group, error) {
	code, err := loadSPIRV(spvPath)
	if err != nil {
		return nil, err
	}

	manifestPath := strings.TrimSuffix(spvPath, filepath.Ext(spvPath)) + ".toml"
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader manifest %s: %w", manifestPath, err)
	}

	var m manifest
	if err := toml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse shader manifest %s: %w", manifestPath, err)
	}
	return groupFromManifest(nameFromPath(spvPath), &m, code)
}

func nameFromPath(spvPath string) string {
	base := filepath.Base(spvPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func groupFromManifest(name string, m *manifest, code []uint32) (*Group, error) {
	stage, err := ParseStage(m.Stage)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", name, err)
	}

	group := &Group{
		Name:  name,
		Stage: stage,
		Code:  code,
	}
	for _, b := range m.Bindings {
		bt, err := parseBindingType(b.Type)
		if err != nil {
			return nil, fmt.Errorf("shader %q set %d binding %d: %w", name, b.Set, b.Binding, err)
		}
		count := b.Count
		if count == 0 {
			count = 1
		}
		group.Bindings = append(group.Bindings, Binding{
			Set:     b.Set,
			Binding: b.Binding,
			Type:    bt,
			Count:   count,
			Stages:  MaskOf(stage),
		})
	}
	for _, pc := range m.PushConstants {
		if pc.Size == 0 {
			return nil, fmt.Errorf("shader %q declares a zero-size push constant range: %w",
				name, core.ErrReflectionMismatch)
		}
		group.PushConstants = append(group.PushConstants, PushConstantRange{
			Offset: pc.Offset,
			Size:   pc.Size,
			Stages: MaskOf(stage),
		})
	}
	return group, nil
}

func parseBindingType(name string) (BindingType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "uniform_buffer":
		return BindingUniformBuffer, nil
	case "storage_buffer":
		return BindingStorageBuffer, nil
	case "storage_image":
		return BindingStorageImage, nil
	case "acceleration_structure":
		return BindingAccelerationStructure, nil
	default:
		return 0, fmt.Errorf("unknown binding type %q: %w", name, core.ErrReflectionMismatch)
	}
}

// loadSPIRV reads a compiled module and validates the magic word before
// handing the words to module creation.
func loadSPIRV(path string) ([]uint32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader module %s: %w", path, err)
	}
	if len(raw) < 4 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("shader module %s is not a SPIR-V binary: %w", path, core.ErrReflectionMismatch)
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	if words[0] != SPIRV_MAGIC {
		return nil, fmt.Errorf("shader module %s has bad magic 0x%08x: %w", path, words[0], core.ErrReflectionMismatch)
	}
	return words, nil
}
