package nengine

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeyW int = iota
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	KeyR
	KeyF
	KeySpace
	KeyEnter
	KeyEscape
	KeyTab
	KeyShift
	KeyControl
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle
	keyCount
)

var keyToGlfw = map[int]glfw.Key{
	KeyW:       glfw.KeyW,
	KeyA:       glfw.KeyA,
	KeyS:       glfw.KeyS,
	KeyD:       glfw.KeyD,
	KeyQ:       glfw.KeyQ,
	KeyE:       glfw.KeyE,
	KeyR:       glfw.KeyR,
	KeyF:       glfw.KeyF,
	KeySpace:   glfw.KeySpace,
	KeyEnter:   glfw.KeyEnter,
	KeyEscape:  glfw.KeyEscape,
	KeyTab:     glfw.KeyTab,
	KeyShift:   glfw.KeyLeftShift,
	KeyControl: glfw.KeyLeftControl,
	KeyUp:      glfw.KeyUp,
	KeyDown:    glfw.KeyDown,
	KeyLeft:    glfw.KeyLeft,
	KeyRight:   glfw.KeyRight,
}

// Input is the per-frame input snapshot handed to every actor. Actors
// receive it read-only; the App repolls it between frames, never during
// the parallel update fan-out.
type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	ScrollY                  float64
	MouseCaptured            bool

	WindowWidth, WindowHeight int
}

// inputPoller owns the glfw side of input: event pumping, key and
// mouse-button state diffing, scroll accumulation via callback.
type inputPoller struct {
	window *glfw.Window
	scroll float64
}

func newInputPoller(window *glfw.Window) *inputPoller {
	p := &inputPoller{window: window}
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		p.scroll += yoff
	})
	return p
}

// poll pumps events and rewrites the snapshot in place.
func (p *inputPoller) poll(input *Input) {
	glfw.PollEvents()

	for key, glfwKey := range keyToGlfw {
		action := p.window.GetKey(glfwKey)

		input.JustPressed[key] = false
		input.JustReleased[key] = false

		if glfw.Press == action {
			if !input.Pressed[key] {
				input.JustPressed[key] = true
			}
			input.Pressed[key] = true
		} else if glfw.Release == action {
			if input.Pressed[key] {
				input.JustReleased[key] = true
			}
			input.Pressed[key] = false
		}
	}

	for btn := MouseButtonLeft; btn <= MouseButtonMiddle; btn++ {
		var glfwBtn glfw.MouseButton
		switch btn {
		case MouseButtonLeft:
			glfwBtn = glfw.MouseButtonLeft
		case MouseButtonRight:
			glfwBtn = glfw.MouseButtonRight
		case MouseButtonMiddle:
			glfwBtn = glfw.MouseButtonMiddle
		}

		action := p.window.GetMouseButton(glfwBtn)
		input.JustPressed[btn] = false
		input.JustReleased[btn] = false

		if glfw.Press == action {
			if !input.Pressed[btn] {
				input.JustPressed[btn] = true
			}
			input.Pressed[btn] = true
		} else if glfw.Release == action {
			if input.Pressed[btn] {
				input.JustReleased[btn] = true
			}
			input.Pressed[btn] = false
		}
	}

	mx, my := p.window.GetCursorPos()
	if input.MouseCaptured {
		input.MouseDeltaX = mx - input.MouseX
		input.MouseDeltaY = my - input.MouseY
	} else {
		input.MouseDeltaX = 0
		input.MouseDeltaY = 0
	}
	input.MouseX = mx
	input.MouseY = my

	input.ScrollY = p.scroll
	p.scroll = 0

	input.WindowWidth, input.WindowHeight = p.window.GetSize()

	if input.MouseCaptured {
		p.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		p.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}
