package shader

import (
	"errors"
	"testing"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

func rayGroups() []*Group {
	return []*Group{
		{
			Name:  "trace.rgen",
			Stage: StageRaygen,
			Bindings: []Binding{
				{Set: 0, Binding: 0, Type: BindingAccelerationStructure, Count: 1},
				{Set: 0, Binding: 1, Type: BindingStorageImage, Count: 1},
			},
			PushConstants: []PushConstantRange{{Offset: 0, Size: 208}},
		},
		{
			Name:  "trace.rchit",
			Stage: StageClosestHit,
			Bindings: []Binding{
				{Set: 0, Binding: 0, Type: BindingAccelerationStructure, Count: 1},
				{Set: 1, Binding: 0, Type: BindingStorageBuffer, Count: 1},
				{Set: 1, Binding: 1, Type: BindingStorageBuffer, Count: 1},
			},
			PushConstants: []PushConstantRange{{Offset: 0, Size: 208}},
		},
		{
			Name:  "trace.rmiss",
			Stage: StageMiss,
		},
	}
}

func TestMergeLayoutUnion(t *testing.T) {
	layout, err := MergeLayout(rayGroups())
	if err != nil {
		t.Fatalf("MergeLayout failed: %v", err)
	}

	sets := layout.Sets()
	if len(sets) != 2 {
		t.Fatalf("expected 2 descriptor sets, got %d", len(sets))
	}
	if len(sets[0]) != 2 || len(sets[1]) != 2 {
		t.Fatalf("unexpected binding counts: set0=%d set1=%d", len(sets[0]), len(sets[1]))
	}

	as := sets[0][0]
	if as.Type != BindingAccelerationStructure {
		t.Fatalf("set 0 binding 0 should be the acceleration structure, got %s", as.Type)
	}
	if !as.Stages.Has(StageRaygen) || !as.Stages.Has(StageClosestHit) {
		t.Fatalf("acceleration structure stages not unioned: %08b", as.Stages)
	}
	if as.Stages.Has(StageMiss) {
		t.Fatalf("miss stage leaked into acceleration structure binding")
	}

	pcs := layout.PushConstants()
	if len(pcs) != 1 {
		t.Fatalf("identical push constant ranges should collapse to one, got %d", len(pcs))
	}
	if pcs[0].Size != 208 {
		t.Fatalf("push constant size = %d, want 208", pcs[0].Size)
	}
	if !pcs[0].Stages.Has(StageRaygen) || !pcs[0].Stages.Has(StageClosestHit) {
		t.Fatalf("push constant stages not unioned: %08b", pcs[0].Stages)
	}
	if layout.PushConstantSize() != 208 {
		t.Fatalf("PushConstantSize = %d, want 208", layout.PushConstantSize())
	}
}

func TestMergeLayoutTypeCollision(t *testing.T) {
	groups := []*Group{
		{
			Name:     "a.rgen",
			Stage:    StageRaygen,
			Bindings: []Binding{{Set: 0, Binding: 1, Type: BindingStorageImage, Count: 1}},
		},
		{
			Name:     "b.rchit",
			Stage:    StageClosestHit,
			Bindings: []Binding{{Set: 0, Binding: 1, Type: BindingStorageBuffer, Count: 1}},
		},
	}
	if _, err := MergeLayout(groups); !errors.Is(err, core.ErrReflectionMismatch) {
		t.Fatalf("expected ErrReflectionMismatch for conflicting binding types, got %v", err)
	}
}

func TestMergeLayoutCountCollision(t *testing.T) {
	groups := []*Group{
		{
			Name:     "a.rgen",
			Stage:    StageRaygen,
			Bindings: []Binding{{Set: 1, Binding: 0, Type: BindingStorageBuffer, Count: 1}},
		},
		{
			Name:     "b.rchit",
			Stage:    StageClosestHit,
			Bindings: []Binding{{Set: 1, Binding: 0, Type: BindingStorageBuffer, Count: 2}},
		},
	}
	if _, err := MergeLayout(groups); !errors.Is(err, core.ErrReflectionMismatch) {
		t.Fatalf("expected ErrReflectionMismatch for conflicting counts, got %v", err)
	}
}

func TestMergeLayoutPushConstantOverlap(t *testing.T) {
	groups := []*Group{
		{
			Name:          "a.rgen",
			Stage:         StageRaygen,
			PushConstants: []PushConstantRange{{Offset: 0, Size: 208}},
		},
		{
			Name:          "b.rchit",
			Stage:         StageClosestHit,
			PushConstants: []PushConstantRange{{Offset: 16, Size: 192}},
		},
	}
	if _, err := MergeLayout(groups); !errors.Is(err, core.ErrReflectionMismatch) {
		t.Fatalf("expected ErrReflectionMismatch for partially overlapping ranges, got %v", err)
	}
}

func TestMergeLayoutDisjointPushConstants(t *testing.T) {
	groups := []*Group{
		{
			Name:          "a.vert",
			Stage:         StageVertex,
			PushConstants: []PushConstantRange{{Offset: 0, Size: 64}},
		},
		{
			Name:          "b.frag",
			Stage:         StageFragment,
			PushConstants: []PushConstantRange{{Offset: 64, Size: 16}},
		},
	}
	layout, err := MergeLayout(groups)
	if err != nil {
		t.Fatalf("disjoint ranges should merge: %v", err)
	}
	if got := layout.PushConstantSize(); got != 80 {
		t.Fatalf("PushConstantSize = %d, want 80", got)
	}
}

func TestMergeLayoutEmpty(t *testing.T) {
	if _, err := MergeLayout(nil); !errors.Is(err, core.ErrBuildFailed) {
		t.Fatalf("expected ErrBuildFailed for empty group list, got %v", err)
	}
}

func TestParseStage(t *testing.T) {
	cases := map[string]Stage{
		"vertex":      StageVertex,
		"fragment":    StageFragment,
		"raygen":      StageRaygen,
		"miss":        StageMiss,
		"closest-hit": StageClosestHit,
		"closesthit":  StageClosestHit,
	}
	for name, want := range cases {
		got, err := ParseStage(name)
		if err != nil {
			t.Fatalf("ParseStage(%q) failed: %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseStage(%q) = %v, want %v", name, got, want)
		}
	}
	if _, err := ParseStage("geometry"); !errors.Is(err, core.ErrUnsupportedStage) {
		t.Fatalf("expected ErrUnsupportedStage, got %v", err)
	}
}
