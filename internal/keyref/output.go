package keyref

// MouseOutput is the mouse-kind contribution to an output snapshot: a
// button bitmask plus saturating cursor/wheel deltas. Multiple mouse keys
// held simultaneously merge by bit-union of buttons and saturating add of
// the deltas.
type MouseOutput struct {
	Buttons        uint8
	X, Y           int8
	WheelX, WheelY int8
}

// CursorStepPerTick is the constant per-tick cursor delta a held
// mouse-cursor key contributes, per spec.md §4.3.
const CursorStepPerTick int8 = 5

// WheelStepPerTick is the constant per-tick wheel delta a held
// mouse-wheel key contributes, per spec.md §4.3.
const WheelStepPerTick int8 = 1

func saturatingAddI8(a, b int8) int8 {
	sum := int16(a) + int16(b)
	switch {
	case sum > 127:
		return 127
	case sum < -128:
		return -128
	default:
		return int8(sum)
	}
}

// Merge combines two mouse outputs as described in spec.md §4.3.
func (m MouseOutput) Merge(other MouseOutput) MouseOutput {
	return MouseOutput{
		Buttons: m.Buttons | other.Buttons,
		X:       saturatingAddI8(m.X, other.X),
		Y:       saturatingAddI8(m.Y, other.Y),
		WheelX:  saturatingAddI8(m.WheelX, other.WheelX),
		WheelY:  saturatingAddI8(m.WheelY, other.WheelY),
	}
}

// IsZero reports whether this mouse output has no effect at all.
func (m MouseOutput) IsZero() bool {
	return m.Buttons == 0 && m.X == 0 && m.Y == 0 && m.WheelX == 0 && m.WheelY == 0
}

// KeyOutput is a single pressed key's contribution to the per-tick output
// snapshot: at most one key code, one consumer code and one custom code,
// plus any modifiers and mouse deltas. Presence of the scalar codes is
// tracked explicitly since zero is a valid HID usage code.
type KeyOutput struct {
	KeyCode         uint8
	HasKeyCode      bool
	Modifiers       KeyboardModifiers
	ConsumerCode    uint16
	HasConsumerCode bool
	CustomCode      uint8
	HasCustomCode   bool
	Mouse           MouseOutput
}

// IsEmpty reports whether this output contributes nothing at all.
func (o KeyOutput) IsEmpty() bool {
	return !o.HasKeyCode && o.Modifiers.IsZero() && !o.HasConsumerCode &&
		!o.HasCustomCode && o.Mouse.IsZero()
}

// Merge combines two KeyOutputs: modifiers union, mouse deltas saturating-
// add, and the first-present scalar code for each of key/consumer/custom
// wins (two keys occupying the same scalar slot at once is a keymap
// authoring error the config validator should have already rejected).
func (o KeyOutput) Merge(other KeyOutput) KeyOutput {
	merged := o
	merged.Modifiers = merged.Modifiers.Union(other.Modifiers)
	merged.Mouse = merged.Mouse.Merge(other.Mouse)
	if other.HasKeyCode && !merged.HasKeyCode {
		merged.KeyCode, merged.HasKeyCode = other.KeyCode, true
	}
	if other.HasConsumerCode && !merged.HasConsumerCode {
		merged.ConsumerCode, merged.HasConsumerCode = other.ConsumerCode, true
	}
	if other.HasCustomCode && !merged.HasCustomCode {
		merged.CustomCode, merged.HasCustomCode = other.CustomCode, true
	}
	return merged
}

// MaxBootKeyCodes is the number of simultaneous key codes a boot keyboard
// report can carry (spec.md §6).
const MaxBootKeyCodes = 6

// ReportOutput is the aggregated output snapshot for one tick: every
// pressed key's KeyOutput folded together, per spec.md §6.
type ReportOutput struct {
	Modifiers     KeyboardModifiers
	KeyCodes      []uint8
	ConsumerCodes []uint16
	CustomCodes   []uint8
	Mouse         MouseOutput
}

// Add folds a single key's output into the running report, in press order.
func (r *ReportOutput) Add(o KeyOutput) {
	r.Modifiers = r.Modifiers.Union(o.Modifiers)
	r.Mouse = r.Mouse.Merge(o.Mouse)
	if o.HasKeyCode && len(r.KeyCodes) < MaxBootKeyCodes {
		r.KeyCodes = append(r.KeyCodes, o.KeyCode)
	}
	if o.HasConsumerCode {
		r.ConsumerCodes = append(r.ConsumerCodes, o.ConsumerCode)
	}
	if o.HasCustomCode {
		r.CustomCodes = append(r.CustomCodes, o.CustomCode)
	}
}

// AsHIDBootKeyboardReport renders the boot-protocol 8-byte report: byte 0
// is the modifier bitfield, byte 1 is reserved (zero), bytes 2..8 are up to
// 6 key codes in press order, per spec.md §6.
func (r ReportOutput) AsHIDBootKeyboardReport() [8]byte {
	var report [8]byte
	report[0] = uint8(r.Modifiers)
	for i, code := range r.KeyCodes {
		if i >= MaxBootKeyCodes {
			break
		}
		report[2+i] = code
	}
	return report
}

// PressedConsumerCodes returns the consumer usage codes active this tick.
func (r ReportOutput) PressedConsumerCodes() []uint16 { return r.ConsumerCodes }

// PressedCustomCodes returns the custom codes active this tick.
func (r ReportOutput) PressedCustomCodes() []uint8 { return r.CustomCodes }

// PressedMouseOutput returns the merged mouse output for this tick.
func (r ReportOutput) PressedMouseOutput() MouseOutput { return r.Mouse }

// IsEmpty reports whether the report is equivalent to the all-zero report.
func (r ReportOutput) IsEmpty() bool {
	report := r.AsHIDBootKeyboardReport()
	if report != [8]byte{} {
		return false
	}
	return len(r.ConsumerCodes) == 0 && len(r.CustomCodes) == 0 && r.Mouse.IsZero()
}
