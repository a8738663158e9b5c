package renderer

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/theHamsta/go-rtx-renderer/engine/platform"
)

// PushConstantsSize is the byte size of the block both pipelines declare: a
// vec4 light position followed by three column major mat4s.
const PushConstantsSize = 16 + 3*64

// Field of view of the perspective projection, in degrees.
const cameraFovDegrees = 60.0

var lightPosition = mgl32.Vec4{2.0, 0.0, 0.0, 1.0}

// PushConstants carries the per-frame camera state into the shaders. The
// raster pipeline consumes model, view and projection directly; the ray
// generation shader walks rays from the camera and wants the inverses.
type PushConstants struct {
	Light mgl32.Vec4
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// NewPushConstants builds the block from the interactive camera state. The
// eye sits at zoom scaled (0, 1, 5) looking at the mesh centroid, the model
// spins around Y by angle, and panning shifts eye and target together.
func NewPushConstants(camera platform.CameraState, centroid mgl32.Vec3, aspect, angle float32) PushConstants {
	pan := mgl32.Vec3{camera.PanX, camera.PanY, 0}
	eye := mgl32.Vec3{0, 1, 5}.Mul(camera.Zoom).Add(pan)
	target := centroid.Add(pan)

	return PushConstants{
		Light: lightPosition,
		Model: mgl32.HomogRotate3DY(camera.RotationY + angle),
		View:  mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0}),
		Proj:  mgl32.Perspective(mgl32.DegToRad(cameraFovDegrees), aspect, 0.1, 100.0),
	}
}

func putMat4(dst []byte, m mgl32.Mat4) {
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(m[i]))
	}
}

func putVec4(dst []byte, v mgl32.Vec4) {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v[i]))
	}
}

// EncodeRaster packs light, model, view, projection.
func (pc PushConstants) EncodeRaster() []byte {
	raw := make([]byte, PushConstantsSize)
	putVec4(raw[0:], pc.Light)
	putMat4(raw[16:], pc.Model)
	putMat4(raw[80:], pc.View)
	putMat4(raw[144:], pc.Proj)
	return raw
}

// EncodeRayTracing packs light, model, inverse view, inverse projection.
func (pc PushConstants) EncodeRayTracing() []byte {
	raw := make([]byte, PushConstantsSize)
	putVec4(raw[0:], pc.Light)
	putMat4(raw[16:], pc.Model)
	putMat4(raw[80:], pc.View.Inv())
	putMat4(raw[144:], pc.Proj.Inv())
	return raw
}
