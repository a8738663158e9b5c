package shader

import (
	"fmt"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

// Stage identifies the pipeline stage a shader group occupies.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageRaygen
	StageMiss
	StageClosestHit
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageRaygen:
		return "raygen"
	case StageMiss:
		return "miss"
	case StageClosestHit:
		return "closest-hit"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// ParseStage maps a manifest stage name to a Stage.
func ParseStage(name string) (Stage, error) {
	switch name {
	case "vertex":
		return StageVertex, nil
	case "fragment":
		return StageFragment, nil
	case "raygen":
		return StageRaygen, nil
	case "miss":
		return StageMiss, nil
	case "closest-hit", "closesthit":
		return StageClosestHit, nil
	}
	return 0, fmt.Errorf("shader stage %q: %w", name, core.ErrUnsupportedStage)
}

// IsRayTracing reports whether the stage belongs to the ray-tracing pipeline.
func (s Stage) IsRayTracing() bool {
	return s == StageRaygen || s == StageMiss || s == StageClosestHit
}

// BindingType mirrors the descriptor types the session uses.
type BindingType uint8

const (
	BindingUniformBuffer BindingType = iota
	BindingStorageBuffer
	BindingStorageImage
	BindingAccelerationStructure
)

func (b BindingType) String() string {
	switch b {
	case BindingUniformBuffer:
		return "uniform-buffer"
	case BindingStorageBuffer:
		return "storage-buffer"
	case BindingStorageImage:
		return "storage-image"
	case BindingAccelerationStructure:
		return "acceleration-structure"
	}
	return fmt.Sprintf("binding-type(%d)", uint8(b))
}

// Binding is one reflected descriptor binding of a shader stage.
type Binding struct {
	Set     uint32
	Binding uint32
	Type    BindingType
	Count   uint32
	Stages  StageMask
}

// PushConstantRange is one reflected push-constant byte range.
type PushConstantRange struct {
	Offset uint32
	Size   uint32
	Stages StageMask
}

// StageMask is a bit set of Stages.
type StageMask uint8

func MaskOf(stages ...Stage) StageMask {
	var m StageMask
	for _, s := range stages {
		m |= 1 << s
	}
	return m
}

func (m StageMask) Has(s Stage) bool { return m&(1<<s) != 0 }

// Group is one compiled shader stage plus its reflection metadata: the
// binary, the descriptor bindings it declares and its push-constant ranges.
type Group struct {
	Name          string
	Stage         Stage
	Code          []uint32
	Bindings      []Binding
	PushConstants []PushConstantRange
}
