package mesh

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func triangleMesh(t *testing.T) *Mesh {
	t.Helper()
	m, err := FromArrays(
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		nil,
		[]uint32{0, 1, 2},
	)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestFromArraysValid(t *testing.T) {
	m := triangleMesh(t)
	if m.NumTriangles() != 1 || m.NumVertices() != 3 {
		t.Errorf("got %d triangles / %d vertices", m.NumTriangles(), m.NumVertices())
	}
}

func TestFromArraysRejectsNonTriangleIndexCount(t *testing.T) {
	// A quad's four indices must be refused before any device work happens.
	_, err := FromArrays(
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		nil,
		[]uint32{0, 1, 2, 3},
	)
	if err == nil {
		t.Fatal("expected error for index count not divisible by 3")
	}
	if !strings.Contains(err.Error(), "multiple of 3") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFromArraysRejectsOutOfRangeIndex(t *testing.T) {
	_, err := FromArrays(
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		nil,
		[]uint32{0, 1, 7},
	)
	if err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

func TestFromArraysRejectsNormalCountMismatch(t *testing.T) {
	_, err := FromArrays(
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		[]mgl32.Vec3{{0, 0, 1}},
		[]uint32{0, 1, 2},
	)
	if err == nil {
		t.Fatal("expected error for normal/vertex count mismatch")
	}
}

func TestCentroid(t *testing.T) {
	m := triangleMesh(t)
	c := m.Centroid()
	want := mgl32.Vec3{1.0 / 3.0, 1.0 / 3.0, 0}
	for i := 0; i < 3; i++ {
		if math.Abs(float64(c[i]-want[i])) > 1e-6 {
			t.Errorf("centroid[%d] = %f, want %f", i, c[i], want[i])
		}
	}
}

func TestFlatNormals(t *testing.T) {
	m := triangleMesh(t)
	normals := m.FlatNormals()
	if len(normals) != 3 {
		t.Fatalf("got %d normals", len(normals))
	}
	// CCW triangle in the XY plane faces +Z.
	for i, n := range normals {
		if math.Abs(float64(n.Z()-1)) > 1e-6 {
			t.Errorf("normal %d = %v, want +Z", i, n)
		}
	}
}

func TestLoadOBJ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.obj")
	src := `# single triangle
v 0 0 0
v 1 0 0
v 0 1 0
vn 0 0 1
vn 0 0 1
vn 0 0 1
f 1//1 2//2 3//3
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadOBJ(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumTriangles() != 1 {
		t.Errorf("got %d triangles, want 1", m.NumTriangles())
	}
	if !m.HasVertexNormals() {
		t.Error("normals from file were dropped")
	}
}

func TestLoadOBJWithoutNormalsReportsNone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.obj")
	src := `v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadOBJ(path)
	if err != nil {
		t.Fatal(err)
	}
	// The loader must not invent normals; generation happens at upload so
	// callers can tell file normals from derived ones.
	if m.HasVertexNormals() {
		t.Error("loader fabricated vertex normals")
	}
	if got := len(m.FlatNormals()); got != m.NumVertices() {
		t.Errorf("got %d flat normals, want %d", got, m.NumVertices())
	}
}

func TestLoadOBJRejectsQuadFace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	src := `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOBJ(path); err == nil {
		t.Fatal("expected error for quad face")
	}
}

func TestCubeIsValid(t *testing.T) {
	m := Cube(2)
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if m.NumVertices() != 24 {
		t.Errorf("got %d vertices, want 24", m.NumVertices())
	}
	if m.NumTriangles() != 12 {
		t.Errorf("got %d triangles, want 12", m.NumTriangles())
	}
	if !m.HasVertexNormals() {
		t.Error("cube should carry face normals")
	}
	c := m.Centroid()
	for i := 0; i < 3; i++ {
		if c[i] < -1e-6 || c[i] > 1e-6 {
			t.Errorf("centroid[%d] = %f, want 0", i, c[i])
		}
	}
}
