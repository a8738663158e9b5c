package shader

import (
	"fmt"
	"sort"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

// Layout is the union of every binding and push-constant range declared by a
// set of shader groups. It is what the pipeline layout provisions; any
// binding a stage reflects that the layout cannot serve is a build error
// caught here, not a runtime fault.
type Layout struct {
	sets          map[uint32][]Binding
	pushConstants []PushConstantRange
}

// MergeLayout unions the reflected bindings of all supplied groups into one
// descriptor-set-layout description per set index. Bindings colliding on
// (set, binding) with a different type or count fail the merge. Push-constant
// ranges overlapping with different extents fail unless byte-identical (the
// shared push-constant block case).
func MergeLayout(groups []*Group) (*Layout, error) {
	if len(groups) == 0 {
		return nil, core.BuildErrorf("no shader groups supplied")
	}
	layout := &Layout{sets: make(map[uint32][]Binding)}

	for _, g := range groups {
		for _, b := range g.Bindings {
			if err := layout.mergeBinding(g, b); err != nil {
				return nil, err
			}
		}
		for _, pc := range g.PushConstants {
			if err := layout.mergePushConstant(g, pc); err != nil {
				return nil, err
			}
		}
	}

	for set := range layout.sets {
		sort.Slice(layout.sets[set], func(i, j int) bool {
			return layout.sets[set][i].Binding < layout.sets[set][j].Binding
		})
	}
	sort.Slice(layout.pushConstants, func(i, j int) bool {
		return layout.pushConstants[i].Offset < layout.pushConstants[j].Offset
	})
	return layout, nil
}

func (l *Layout) mergeBinding(g *Group, b Binding) error {
	b.Stages |= MaskOf(g.Stage)
	for i, existing := range l.sets[b.Set] {
		if existing.Binding != b.Binding {
			continue
		}
		if existing.Type != b.Type || existing.Count != b.Count {
			return fmt.Errorf(
				"shader %q set %d binding %d declared as %s x%d but already provisioned as %s x%d: %w",
				g.Name, b.Set, b.Binding, b.Type, b.Count, existing.Type, existing.Count,
				core.ErrReflectionMismatch)
		}
		l.sets[b.Set][i].Stages |= b.Stages
		return nil
	}
	l.sets[b.Set] = append(l.sets[b.Set], b)
	return nil
}

func (l *Layout) mergePushConstant(g *Group, pc PushConstantRange) error {
	pc.Stages |= MaskOf(g.Stage)
	for i, existing := range l.pushConstants {
		overlap := pc.Offset < existing.Offset+existing.Size &&
			existing.Offset < pc.Offset+pc.Size
		if !overlap {
			continue
		}
		if pc.Offset != existing.Offset || pc.Size != existing.Size {
			return fmt.Errorf(
				"shader %q push constants [%d,%d) overlap provisioned range [%d,%d) without matching it: %w",
				g.Name, pc.Offset, pc.Offset+pc.Size, existing.Offset, existing.Offset+existing.Size,
				core.ErrReflectionMismatch)
		}
		l.pushConstants[i].Stages |= pc.Stages
		return nil
	}
	l.pushConstants = append(l.pushConstants, pc)
	return nil
}

// Sets returns the merged bindings per set index, sorted by binding number.
func (l *Layout) Sets() map[uint32][]Binding {
	out := make(map[uint32][]Binding, len(l.sets))
	for set, bindings := range l.sets {
		out[set] = append([]Binding(nil), bindings...)
	}
	return out
}

// SetIndices returns the provisioned set indices in ascending order.
func (l *Layout) SetIndices() []uint32 {
	indices := make([]uint32, 0, len(l.sets))
	for set := range l.sets {
		indices = append(indices, set)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

// PushConstants returns the merged ranges sorted by offset.
func (l *Layout) PushConstants() []PushConstantRange {
	return append([]PushConstantRange(nil), l.pushConstants...)
}

// PushConstantSize is the total byte extent the layout provisions.
func (l *Layout) PushConstantSize() uint32 {
	var end uint32
	for _, pc := range l.pushConstants {
		if pc.Offset+pc.Size > end {
			end = pc.Offset + pc.Size
		}
	}
	return end
}
