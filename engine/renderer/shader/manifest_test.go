package shader

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

func writeSPIRV(t *testing.T, dir, name string, words []uint32) string {
	t.Helper()
	raw := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadGroup(t *testing.T) {
	dir := t.TempDir()
	spv := writeSPIRV(t, dir, "trace.rgen.spv", []uint32{SPIRV_MAGIC, 0x00010500, 0, 1, 0})

	manifest := `
stage = "raygen"

[[bindings]]
set = 0
binding = 0
type = "acceleration_structure"

[[bindings]]
set = 0
binding = 1
type = "storage_image"

[[push_constants]]
offset = 0
size = 208
`
	if err := os.WriteFile(filepath.Join(dir, "trace.rgen.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	group, err := LoadGroup(spv)
	if err != nil {
		t.Fatalf("LoadGroup failed: %v", err)
	}
	if group.Name != "trace.rgen" {
		t.Fatalf("group name = %q", group.Name)
	}
	if group.Stage != StageRaygen {
		t.Fatalf("stage = %v, want raygen", group.Stage)
	}
	if len(group.Code) != 5 || group.Code[0] != SPIRV_MAGIC {
		t.Fatalf("SPIR-V words not decoded: %v", group.Code)
	}
	if len(group.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(group.Bindings))
	}
	if group.Bindings[0].Count != 1 {
		t.Fatalf("omitted count should default to 1, got %d", group.Bindings[0].Count)
	}
	if len(group.PushConstants) != 1 || group.PushConstants[0].Size != 208 {
		t.Fatalf("push constants not parsed: %+v", group.PushConstants)
	}
}

func TestLoadGroupBadMagic(t *testing.T) {
	dir := t.TempDir()
	spv := writeSPIRV(t, dir, "broken.rmiss.spv", []uint32{0xdeadbeef, 0, 0})
	if err := os.WriteFile(filepath.Join(dir, "broken.rmiss.toml"), []byte(`stage = "miss"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGroup(spv); !errors.Is(err, core.ErrReflectionMismatch) {
		t.Fatalf("expected ErrReflectionMismatch for bad magic, got %v", err)
	}
}

func TestLoadGroupUnknownStage(t *testing.T) {
	dir := t.TempDir()
	spv := writeSPIRV(t, dir, "tess.spv", []uint32{SPIRV_MAGIC})
	if err := os.WriteFile(filepath.Join(dir, "tess.toml"), []byte(`stage = "tessellation"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGroup(spv); !errors.Is(err, core.ErrUnsupportedStage) {
		t.Fatalf("expected ErrUnsupportedStage, got %v", err)
	}
}

func TestLoadGroupUnknownBindingType(t *testing.T) {
	dir := t.TempDir()
	spv := writeSPIRV(t, dir, "s.frag.spv", []uint32{SPIRV_MAGIC})
	manifest := `
stage = "fragment"

[[bindings]]
set = 0
binding = 0
type = "combined_image_sampler"
`
	if err := os.WriteFile(filepath.Join(dir, "s.frag.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGroup(spv); !errors.Is(err, core.ErrReflectionMismatch) {
		t.Fatalf("expected ErrReflectionMismatch for unknown binding type, got %v", err)
	}
}

func TestLoadGroupMissingManifest(t *testing.T) {
	dir := t.TempDir()
	spv := writeSPIRV(t, dir, "lonely.rgen.spv", []uint32{SPIRV_MAGIC})
	if _, err := LoadGroup(spv); err == nil {
		t.Fatal("expected an error for a missing manifest")
	}
}
