package mesh

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

// LoadOBJ reads the triangles-only subset of Wavefront OBJ: v, vn and f
// records, faces must be triangles. Anything richer belongs to a real
// importer; this is just enough to get a mesh into the session.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mesh file %s: %w", path, err)
	}
	defer f.Close()

	var positions []mgl32.Vec3
	var normals []mgl32.Vec3
	var indices []uint32

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v", "vn":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: %s record needs 3 components", path, line, fields[0])
			}
			var vec mgl32.Vec3
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: bad float %q: %w", path, line, fields[i+1], err)
				}
				vec[i] = float32(v)
			}
			if fields[0] == "v" {
				positions = append(positions, vec)
			} else {
				normals = append(normals, vec)
			}
		case "f":
			if len(fields) != 4 {
				return nil, fmt.Errorf("%s:%d: face with %d vertices, only triangles are supported", path, line, len(fields)-1)
			}
			for _, fv := range fields[1:] {
				// "idx", "idx/uv", "idx/uv/n" and "idx//n" all start
				// with the position index.
				head := strings.SplitN(fv, "/", 2)[0]
				idx, err := strconv.ParseInt(head, 10, 32)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: bad index %q: %w", path, line, fv, err)
				}
				if idx < 0 {
					idx = int64(len(positions)) + idx + 1
				}
				if idx < 1 {
					return nil, fmt.Errorf("%s:%d: index %q out of range", path, line, fv)
				}
				indices = append(indices, uint32(idx-1))
			}
		default:
			// Groups, materials and texture coordinates are ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Per-vertex normals are only usable when each vertex has exactly one.
	if len(normals) != len(positions) {
		normals = nil
	}

	// Meshes without usable normals keep an empty normal array; the upload
	// path generates flat normals on demand.
	m, err := FromArrays(positions, normals, indices)
	if err != nil {
		return nil, err
	}
	core.LogInfo("Loaded mesh with %d triangles and %d vertices. vertex_normals: %t.",
		m.NumTriangles(), m.NumVertices(), m.HasVertexNormals())
	return m, nil
}
