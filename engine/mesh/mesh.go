package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is an immutable, session-lifetime triangle mesh: positions, optional
// per-vertex normals and a triangulated index list. It is created once at
// load time; the renderer only ever reads it.
type Mesh struct {
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	indices   []uint32
}

// FromArrays builds a Mesh from already-parsed data. Quads and other
// non-triangle topologies are rejected, as are out-of-range indices.
func FromArrays(positions, normals []mgl32.Vec3, indices []uint32) (*Mesh, error) {
	m := &Mesh{positions: positions, normals: normals, indices: indices}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate enforces the triangle-only contract. It runs before any device
// allocation is attempted.
func (m *Mesh) Validate() error {
	if len(m.positions) == 0 {
		return fmt.Errorf("mesh has no vertices")
	}
	if len(m.indices) == 0 {
		return fmt.Errorf("mesh has no indices")
	}
	if len(m.indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3, only triangle meshes are supported", len(m.indices))
	}
	if len(m.normals) != 0 && len(m.normals) != len(m.positions) {
		return fmt.Errorf("normal count %d does not agree with vertex count %d", len(m.normals), len(m.positions))
	}
	for i, idx := range m.indices {
		if idx >= uint32(len(m.positions)) {
			return fmt.Errorf("index %d at position %d exceeds vertex count %d", idx, i, len(m.positions))
		}
	}
	return nil
}

func (m *Mesh) NumVertices() int  { return len(m.positions) }
func (m *Mesh) NumTriangles() int { return len(m.indices) / 3 }

func (m *Mesh) HasVertexNormals() bool { return len(m.normals) > 0 }

func (m *Mesh) Positions() []mgl32.Vec3 { return m.positions }
func (m *Mesh) Normals() []mgl32.Vec3   { return m.normals }
func (m *Mesh) Indices() []uint32       { return m.indices }

// Centroid is the mean of all vertex positions, used as the initial camera
// target.
func (m *Mesh) Centroid() mgl32.Vec3 {
	var sum mgl32.Vec3
	for _, p := range m.positions {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float32(len(m.positions)))
}

// FlatNormals computes one normal per vertex by averaging adjacent face
// normals, for meshes that ship without attributes.
func (m *Mesh) FlatNormals() []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(m.positions))
	for i := 0; i+2 < len(m.indices); i += 3 {
		a, b, c := m.indices[i], m.indices[i+1], m.indices[i+2]
		ab := m.positions[b].Sub(m.positions[a])
		ac := m.positions[c].Sub(m.positions[a])
		n := ab.Cross(ac)
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}
	for i := range normals {
		if normals[i].Len() > 0 {
			normals[i] = normals[i].Normalize()
		}
	}
	return normals
}
