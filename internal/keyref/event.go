package keyref

// InputEventKind tags a physical press or release.
type InputEventKind uint8

const (
	InputPress InputEventKind = iota
	InputRelease
)

// InputEvent is a physical press/release tagged with the keymap index it
// occurred at, per spec.md §3/§6.
type InputEvent struct {
	Kind        InputEventKind
	KeymapIndex KeymapIndex
}

// Press builds a press InputEvent.
func Press(idx KeymapIndex) InputEvent { return InputEvent{Kind: InputPress, KeymapIndex: idx} }

// ReleaseEv builds a release InputEvent.
func ReleaseEv(idx KeymapIndex) InputEvent { return InputEvent{Kind: InputRelease, KeymapIndex: idx} }

// EventKind tags every event the scheduler and dispatcher carry: the two
// raw input kinds, plus every synthetic event a per-kind handler can emit.
type EventKind uint8

const (
	EventInputPress EventKind = iota
	EventInputRelease
	// EventTapHoldTimeout fires when a pending tap-hold key's timeout elapses (spec.md §4.5).
	EventTapHoldTimeout
	// EventTapDanceTimeout fires when a pending tap-dance key's inter-tap window elapses (spec.md §4.7).
	EventTapDanceTimeout
	// EventChordedTimeout fires when a pending chord's window elapses (spec.md §4.6).
	EventChordedTimeout
	// EventCapsWordIdleTimeout fires when caps-word's idle timer elapses (spec.md §4.9).
	EventCapsWordIdleTimeout
	// EventVirtualKeyPress is a synthesized press of a resolved branch's key code (spec.md §9, SPEC_FULL.md).
	EventVirtualKeyPress
	// EventVirtualKeyRelease is the synthesized matching release.
	EventVirtualKeyRelease
	// EventKeymapCallback is emitted by a Callback-kind key on press (spec.md §4.3).
	EventKeymapCallback
)

// Event is the common envelope for everything the scheduler queues and the
// dispatcher routes: a raw input event or one of the synthetic events
// above, always tagged with the keymap index it concerns so it can be
// cancelled on release (spec.md §3 invariants).
type Event struct {
	Kind            EventKind
	KeymapIndex     KeymapIndex
	KeyCode         uint8  // valid for EventVirtualKeyPress/EventVirtualKeyRelease
	CallbackTag     uint16 // valid for EventKeymapCallback
	CallbackPayload uint16 // valid for EventKeymapCallback
}

// FromInput converts a raw InputEvent into the common Event envelope.
func FromInput(in InputEvent) Event {
	kind := EventInputPress
	if in.Kind == InputRelease {
		kind = EventInputRelease
	}
	return Event{Kind: kind, KeymapIndex: in.KeymapIndex}
}

// IsPressOf reports whether this event is a press of the given index.
func (e Event) IsPressOf(idx KeymapIndex) bool {
	return e.Kind == EventInputPress && e.KeymapIndex == idx
}

// IsReleaseOf reports whether this event is a release of the given index.
func (e Event) IsReleaseOf(idx KeymapIndex) bool {
	return e.Kind == EventInputRelease && e.KeymapIndex == idx
}

// ScheduleKind tags whether a handler's emitted event should be enqueued
// immediately or after a delay, per spec.md §9 and
// original_source/src/key/mod.rs's Schedule enum.
type ScheduleKind uint8

const (
	ScheduleImmediate ScheduleKind = iota
	ScheduleAfter
)

// ScheduledEvent is what per-kind handlers return to the keymap core to be
// drained into the EventScheduler.
type ScheduledEvent struct {
	Schedule ScheduleKind
	DelayMS  uint32
	Event    Event
}

// Immediate wraps an event for same-tick delivery.
func Immediate(ev Event) ScheduledEvent {
	return ScheduledEvent{Schedule: ScheduleImmediate, Event: ev}
}

// After wraps an event for delivery delayMS milliseconds from now.
func After(delayMS uint32, ev Event) ScheduledEvent {
	return ScheduledEvent{Schedule: ScheduleAfter, DelayMS: delayMS, Event: ev}
}
