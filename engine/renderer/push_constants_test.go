package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/theHamsta/go-rtx-renderer/engine/platform"
)

func f32At(raw []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(raw[offset:]))
}

func TestPushConstantsSize(t *testing.T) {
	pc := NewPushConstants(platform.DefaultCamera(), mgl32.Vec3{}, 16.0/9.0, 0)
	if got := len(pc.EncodeRaster()); got != PushConstantsSize {
		t.Fatalf("raster block is %d bytes, want %d", got, PushConstantsSize)
	}
	if got := len(pc.EncodeRayTracing()); got != PushConstantsSize {
		t.Fatalf("ray tracing block is %d bytes, want %d", got, PushConstantsSize)
	}
	if PushConstantsSize != 208 {
		t.Fatalf("PushConstantsSize = %d, want 208", PushConstantsSize)
	}
}

func TestPushConstantsLight(t *testing.T) {
	raw := NewPushConstants(platform.DefaultCamera(), mgl32.Vec3{}, 1, 0).EncodeRaster()
	want := []float32{2, 0, 0, 1}
	for i, w := range want {
		if got := f32At(raw, i*4); got != w {
			t.Fatalf("light[%d] = %g, want %g", i, got, w)
		}
	}
}

func TestPushConstantsIdentityModel(t *testing.T) {
	raw := NewPushConstants(platform.DefaultCamera(), mgl32.Vec3{}, 1, 0).EncodeRaster()
	// Column major identity in bytes 16..80.
	for i := 0; i < 16; i++ {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if got := f32At(raw, 16+i*4); got != want {
			t.Fatalf("model[%d] = %g, want %g", i, got, want)
		}
	}
}

func TestPushConstantsZoomScalesEye(t *testing.T) {
	near := platform.DefaultCamera()
	far := platform.DefaultCamera()
	far.Zoom = 2.0

	nearPC := NewPushConstants(near, mgl32.Vec3{}, 1, 0)
	farPC := NewPushConstants(far, mgl32.Vec3{}, 1, 0)

	// The eye position is recoverable from the inverse view's translation
	// column.
	nearEye := nearPC.View.Inv().Col(3).Vec3()
	farEye := farPC.View.Inv().Col(3).Vec3()
	if farEye.Len() <= nearEye.Len() {
		t.Fatalf("zooming out should move the eye away: near %v far %v", nearEye, farEye)
	}
	wantFar := mgl32.Vec3{0, 2, 10}
	if farEye.Sub(wantFar).Len() > 1e-4 {
		t.Fatalf("far eye = %v, want %v", farEye, wantFar)
	}
}

func TestPushConstantsInverseRoundTrip(t *testing.T) {
	pc := NewPushConstants(platform.DefaultCamera(), mgl32.Vec3{0.3, 0.3, 0}, 16.0/9.0, 0.5)
	rt := pc.EncodeRayTracing()

	var viewInv mgl32.Mat4
	for i := 0; i < 16; i++ {
		viewInv[i] = f32At(rt, 80+i*4)
	}
	roundTrip := pc.View.Mul4(viewInv)
	identity := mgl32.Ident4()
	for i := 0; i < 16; i++ {
		if diff := roundTrip[i] - identity[i]; diff > 1e-4 || diff < -1e-4 {
			t.Fatalf("view * viewInverse != identity at %d: %g", i, roundTrip[i])
		}
	}
}
