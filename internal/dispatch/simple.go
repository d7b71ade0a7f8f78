package dispatch

import (
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

// newSimplePressedKey handles every literal-output kind (spec.md §4.3):
// keyboard key codes and modifiers (literal or combined), consumer codes,
// mouse buttons/cursor/wheel, custom codes, and callbacks. None of these
// ever go pending.
func newSimplePressedKey(sys *system.System, idx keyref.KeymapIndex, ref keyref.Ref) (PressedKeyResult, []keyref.ScheduledEvent) {
	var scheduled []keyref.ScheduledEvent
	if ref.Kind == keyref.KindCallback {
		def := sys.CallbackByIndex(ref.Index)
		scheduled = append(scheduled, keyref.Immediate(keyref.Event{
			Kind:            keyref.EventKeymapCallback,
			KeymapIndex:     idx,
			CallbackTag:     def.Tag,
			CallbackPayload: def.Payload,
		}))
	}
	return resolved(KeyState{Kind: ref.Kind}), scheduled
}

// simpleKeyOutput renders a literal-output key's current contribution.
// Held state for these kinds is "resolved and present in the pressed-key
// table", so this always reports the key as active; the engine removes
// the pressed-key table entry on release (spec.md §4.10).
func simpleKeyOutput(sys *system.System, ref keyref.Ref) (keyref.KeyOutput, bool) {
	switch ref.Kind {
	case keyref.KindKeyboardKeyCode:
		return keyref.KeyOutput{KeyCode: uint8(ref.Index), HasKeyCode: true}, true
	case keyref.KindKeyboardModifiers:
		return keyref.KeyOutput{Modifiers: keyref.KeyboardModifiers(ref.Index)}, true
	case keyref.KindKeyboardKeyCodeAndModifier:
		def := sys.KeyboardByIndex(ref.Index)
		return keyref.KeyOutput{KeyCode: def.KeyCode, HasKeyCode: true, Modifiers: def.Modifiers}, true
	case keyref.KindConsumer:
		return keyref.KeyOutput{ConsumerCode: ref.Index, HasConsumerCode: true}, true
	case keyref.KindCustom:
		return keyref.KeyOutput{CustomCode: uint8(ref.Index), HasCustomCode: true}, true
	case keyref.KindMouseButton:
		return keyref.KeyOutput{Mouse: keyref.MouseOutput{Buttons: 1 << (ref.Index - 1)}}, true
	case keyref.KindMouseCursor:
		return keyref.KeyOutput{Mouse: mouseCursorDelta(keyref.Direction(ref.Index))}, true
	case keyref.KindMouseWheel:
		return keyref.KeyOutput{Mouse: mouseWheelDelta(keyref.Direction(ref.Index))}, true
	case keyref.KindCallback:
		// A callback key has no HID output of its own; its effect is the
		// EventKeymapCallback emitted on press.
		return keyref.KeyOutput{}, true
	default:
		return keyref.KeyOutput{}, false
	}
}

func mouseCursorDelta(dir keyref.Direction) keyref.MouseOutput {
	switch dir {
	case keyref.DirLeft:
		return keyref.MouseOutput{X: -keyref.CursorStepPerTick}
	case keyref.DirRight:
		return keyref.MouseOutput{X: keyref.CursorStepPerTick}
	case keyref.DirUp:
		return keyref.MouseOutput{Y: -keyref.CursorStepPerTick}
	default:
		return keyref.MouseOutput{Y: keyref.CursorStepPerTick}
	}
}

func mouseWheelDelta(dir keyref.Direction) keyref.MouseOutput {
	switch dir {
	case keyref.DirLeft:
		return keyref.MouseOutput{WheelX: -keyref.WheelStepPerTick}
	case keyref.DirRight:
		return keyref.MouseOutput{WheelX: keyref.WheelStepPerTick}
	case keyref.DirUp:
		return keyref.MouseOutput{WheelY: -keyref.WheelStepPerTick}
	default:
		return keyref.MouseOutput{WheelY: keyref.WheelStepPerTick}
	}
}
