// Package input turns SDL2 events into viewer events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType identifies an Event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventWheel
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Keycode
	Width  int
	Height int
	MouseX int
	MouseY int
	// DX, DY are the motion since the last move event.
	DX, DY int
	Button uint8
	// Wheel is the vertical scroll amount, positive away from the user.
	Wheel float32
}

// Input collects the events of one frame and tracks drag state.
type Input struct {
	events   []Event
	dragging bool
	mouseX   int
	mouseY   int
}

// New creates an input handler.
func New() *Input {
	return &Input{events: make([]Event, 0, 16)}
}

// Update polls SDL events. It returns true when the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	quit := false

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
				i.events = append(i.events, Event{Type: EventKeyDown, Key: e.Keysym.Sym})
			}

		case *sdl.MouseMotionEvent:
			i.mouseX, i.mouseY = int(e.X), int(e.Y)
			i.events = append(i.events, Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				DX:     int(e.XRel),
				DY:     int(e.YRel),
			})

		case *sdl.MouseButtonEvent:
			ev := Event{MouseX: int(e.X), MouseY: int(e.Y), Button: e.Button}
			if e.Type == sdl.MOUSEBUTTONDOWN {
				ev.Type = EventMouseDown
				if e.Button == sdl.BUTTON_LEFT {
					i.dragging = true
				}
			} else {
				ev.Type = EventMouseUp
				if e.Button == sdl.BUTTON_LEFT {
					i.dragging = false
				}
			}
			i.events = append(i.events, ev)

		case *sdl.MouseWheelEvent:
			dy := float32(e.Y)
			if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
				dy = -dy
			}
			i.events = append(i.events, Event{Type: EventWheel, Wheel: dy})
		}
	}

	return quit
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Dragging reports whether the left button is held.
func (i *Input) Dragging() bool {
	return i.dragging
}

// Mouse returns the last pointer position.
func (i *Input) Mouse() (int, int) {
	return i.mouseX, i.mouseY
}

// IsKeyPressed reports whether key went down this frame.
func (i *Input) IsKeyPressed(key sdl.Keycode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == key {
			return true
		}
	}
	return false
}
