package core

import (
	"fmt"
	"sync"
)

type EventContext struct {
	// 128 bytes
	Data struct {
		U64 [2]uint64
		F32 [4]float32
		U32 [4]uint32
		U16 [8]uint16
		U8  [16]uint8
	}
}

// System internal event codes.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * u16 width = data.data.u16[0];
	 * u16 height = data.data.u16[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x02

	// A watched shader binary or manifest changed on disk.
	EVENT_CODE_SHADERS_CHANGED SystemEventCode = 0x03

	// Render mode switch requested (raster <-> ray trace).
	/* Context usage:
	 * u8 mode = data.data.u8[0];
	 */
	EVENT_CODE_RENDER_MODE SystemEventCode = 0x04

	// Wireframe style toggle for the raster path.
	EVENT_CODE_RENDER_STYLE SystemEventCode = 0x05

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type FnOnEvent func(code SystemEventCode, sender interface{}, context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	mu         sync.Mutex
	registered [MAX_EVENT_CODE + 1][]*registeredEvent
}

var onceEvents sync.Once
var eventState *eventSystemState

func EventsInitialize() error {
	onceEvents.Do(func() {
		eventState = &eventSystemState{}
	})
	return nil
}

// EventRegister subscribes the listener's callback to the given code. The same
// listener/callback pair may only be registered once per code.
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) error {
	if eventState == nil {
		return fmt.Errorf("event system not initialized")
	}
	if code < 0 || code > MAX_EVENT_CODE {
		return fmt.Errorf("event code %d out of range", code)
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	for _, r := range eventState.registered[code] {
		if r.listener == listener {
			return fmt.Errorf("listener already registered for code %d", code)
		}
	}
	eventState.registered[code] = append(eventState.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return nil
}

// EventFire invokes the callbacks registered for code in registration order.
// A callback returning true marks the event handled and stops propagation.
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	listeners := append([]*registeredEvent(nil), eventState.registered[code]...)
	eventState.mu.Unlock()
	for _, r := range listeners {
		if r.callback(code, sender, context) {
			return true
		}
	}
	return false
}
