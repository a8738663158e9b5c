package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
	"github.com/theHamsta/go-rtx-renderer/engine/renderer/shader"
)

// Catalog locates compiled shaders in a directory. Shaders are discovered
// as <name>.spv with a <name>.toml manifest next to each; the manifest's
// stage decides which pipeline the group belongs to.
type Catalog struct {
	dir string
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

func (c *Catalog) Dir() string {
	return c.dir
}

// LoadGroups reads every discovered shader and splits the groups into the
// rasterization and ray tracing sets.
func (c *Catalog) LoadGroups() (raster, ray []*shader.Group, err error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read shader directory %s: %w", c.dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".spv") {
			continue
		}
		paths = append(paths, filepath.Join(c.dir, entry.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no compiled shaders in %s", c.dir)
	}

	for _, path := range paths {
		group, err := shader.LoadGroup(path)
		if err != nil {
			return nil, nil, err
		}
		if group.Stage.IsRayTracing() {
			ray = append(ray, group)
		} else {
			raster = append(raster, group)
		}
		core.LogDebug("Loaded shader %q (%s).", group.Name, group.Stage)
	}
	return raster, ray, nil
}
