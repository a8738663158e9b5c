package platform

import (
	"math"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window

	camera   CameraState
	dragging bool
	lastX    float64
	lastY    float64
}

func New() (*Platform, error) {
	return &Platform{
		camera: DefaultCamera(),
	}, nil
}

func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetScrollCallback(p.scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events, returning false once the
// window wants to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// Camera returns the current interaction state, sampled once per frame.
func (p *Platform) Camera() CameraState {
	return p.camera
}

func (p *Platform) FramebufferSize() (int, int) {
	return p.Window.GetFramebufferSize()
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateSurface makes the window surface for the given instance and returns
// its raw handle.
func (p *Platform) CreateSurface(instance interface{}) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyEscape, glfw.KeyQ:
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, p, core.EventContext{})
	case glfw.Key1:
		context := core.EventContext{}
		context.Data.U8[0] = 0
		core.EventFire(core.EVENT_CODE_RENDER_MODE, p, context)
	case glfw.Key2:
		context := core.EventContext{}
		context.Data.U8[0] = 1
		core.EventFire(core.EVENT_CODE_RENDER_MODE, p, context)
	case glfw.KeyW:
		core.EventFire(core.EVENT_CODE_RENDER_STYLE, p, core.EventContext{})
	case glfw.KeyLeft:
		p.camera.RotationY -= rotationStep
	case glfw.KeyRight:
		p.camera.RotationY += rotationStep
	case glfw.KeyUp:
		p.camera.Zoom = clampZoom(p.camera.Zoom - zoomStep)
	case glfw.KeyDown:
		p.camera.Zoom = clampZoom(p.camera.Zoom + zoomStep)
	}
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonMiddle {
		return
	}
	p.dragging = action == glfw.Press
	if p.dragging {
		p.lastX, p.lastY = w.GetCursorPos()
	}
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	if !p.dragging {
		return
	}
	p.camera.PanX += float32(xpos-p.lastX) * panSpeed
	p.camera.PanY -= float32(ypos-p.lastY) * panSpeed
	p.lastX = xpos
	p.lastY = ypos
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	p.camera.Zoom = clampZoom(p.camera.Zoom - float32(yoff)*zoomStep)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	context := core.EventContext{}
	context.Data.U32[0] = uint32(width)
	context.Data.U32[1] = uint32(height)
	core.EventFire(core.EVENT_CODE_RESIZED, p, context)
}

const (
	rotationStep = float32(math.Pi) / 36
	zoomStep     = float32(0.1)
	panSpeed     = float32(0.005)
	minZoom      = float32(0.1)
	maxZoom      = float32(10.0)
)

// CameraState is everything the view matrix is derived from: a zoom factor
// scaling the eye position, a rotation applied to the model and a screen
// space pan.
type CameraState struct {
	Zoom      float32
	RotationY float32
	PanX      float32
	PanY      float32
}

func DefaultCamera() CameraState {
	return CameraState{Zoom: 1.0}
}

func clampZoom(zoom float32) float32 {
	if zoom < minZoom {
		return minZoom
	}
	if zoom > maxZoom {
		return maxZoom
	}
	return zoom
}
