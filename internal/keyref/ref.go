// Package keyref defines the tagged key-reference value types the keymap
// engine dispatches on: Ref, KeyOutput, KeyboardModifiers and friends.
//
// Key components:
//   - Ref: a key kind tag plus an index into that kind's data array
//   - KeyOutput: a single key's contribution to an output report
//   - KeyboardModifiers / MouseOutput: bitfield and saturating-add value types
//
// Contributors can extend functionality by:
//   - Adding a new RefKind and its corresponding data array in package system
//   - Adding fields to KeyOutput for a new report type
package keyref

import "fmt"

// KeymapIndex identifies a physical key position. The mapping from
// (row, col) to index is owned by the external matrix-scanning layer.
type KeymapIndex uint16

// RefKind tags which key-system a Ref belongs to and how to interpret its
// Index field.
type RefKind uint8

const (
	// KindKeyboardKeyCode: Index's low byte is a literal HID keyboard usage code.
	KindKeyboardKeyCode RefKind = iota
	// KindKeyboardModifiers: Index's low byte is a literal KeyboardModifiers bitfield.
	KindKeyboardModifiers
	// KindKeyboardKeyCodeAndModifier: Index indexes system.Keyboard for a combined (code, modifiers) pair.
	KindKeyboardKeyCodeAndModifier
	// KindConsumer: Index is a literal HID consumer usage code.
	KindConsumer
	// KindMouseButton: Index is a literal button number, 1..8.
	KindMouseButton
	// KindMouseCursor: Index is a Direction (Left/Right/Up/Down).
	KindMouseCursor
	// KindMouseWheel: Index is a Direction (Up/Down/Left/Right).
	KindMouseWheel
	// KindCustom: Index's low byte is a literal custom HID code.
	KindCustom
	// KindCallback: Index indexes system.Callback for a (tag, payload) pair.
	KindCallback
	// KindLayerHold: Index is the layer number to hold active while pressed.
	KindLayerHold
	// KindLayerToggle: Index is the layer number to flip on each completed tap.
	KindLayerToggle
	// KindLayerSticky: Index is the layer number to latch for one key.
	KindLayerSticky
	// KindLayerSetActive: Index indexes system.LayerSets for a replacement active-layer set.
	KindLayerSetActive
	// KindLayered: Index indexes system.Layered for a base key plus per-layer overrides.
	KindLayered
	// KindTapHold: Index indexes system.TapHold for a (tap, hold) Ref pair.
	KindTapHold
	// KindChorded: Index indexes system.Chorded for a primary key's default Ref and chord family.
	KindChorded
	// KindChordedAuxiliary: Index indexes system.Chorded, identifying which chord family this key can complete.
	KindChordedAuxiliary
	// KindSticky: Index's low byte is a literal KeyboardModifiers bitfield to latch.
	KindSticky
	// KindTapDance: Index indexes system.TapDance for an ordered array of tap definitions.
	KindTapDance
	// KindCapsWordToggle: a toggle callback that OR-shifts subsequent keyboard presses (spec.md §4.9). Index is unused.
	KindCapsWordToggle
)

func (k RefKind) String() string {
	switch k {
	case KindKeyboardKeyCode:
		return "KeyboardKeyCode"
	case KindKeyboardModifiers:
		return "KeyboardModifiers"
	case KindKeyboardKeyCodeAndModifier:
		return "KeyboardKeyCodeAndModifier"
	case KindConsumer:
		return "Consumer"
	case KindMouseButton:
		return "MouseButton"
	case KindMouseCursor:
		return "MouseCursor"
	case KindMouseWheel:
		return "MouseWheel"
	case KindCustom:
		return "Custom"
	case KindCallback:
		return "Callback"
	case KindLayerHold:
		return "LayerHold"
	case KindLayerToggle:
		return "LayerToggle"
	case KindLayerSticky:
		return "LayerSticky"
	case KindLayerSetActive:
		return "LayerSetActive"
	case KindLayered:
		return "Layered"
	case KindTapHold:
		return "TapHold"
	case KindChorded:
		return "Chorded"
	case KindChordedAuxiliary:
		return "ChordedAuxiliary"
	case KindSticky:
		return "Sticky"
	case KindTapDance:
		return "TapDance"
	case KindCapsWordToggle:
		return "CapsWordToggle"
	default:
		return fmt.Sprintf("RefKind(%d)", uint8(k))
	}
}

// Ref is a tagged value identifying both the kind of key and an index into
// that kind's data array (or, for simple literal kinds, the data itself).
type Ref struct {
	Kind  RefKind
	Index uint16
}

func (r Ref) String() string {
	return fmt.Sprintf("%s(%d)", r.Kind, r.Index)
}

// Keyboard builds a literal keycode Ref.
func Keyboard(keyCode uint8) Ref { return Ref{Kind: KindKeyboardKeyCode, Index: uint16(keyCode)} }

// Modifier builds a literal modifiers-only Ref.
func Modifier(mods KeyboardModifiers) Ref {
	return Ref{Kind: KindKeyboardModifiers, Index: uint16(mods)}
}

// KeyboardCombo builds a Ref into system.Keyboard's combined (code, modifier) table.
func KeyboardCombo(index uint16) Ref { return Ref{Kind: KindKeyboardKeyCodeAndModifier, Index: index} }

// Consumer builds a literal consumer usage-code Ref.
func Consumer(usageCode uint16) Ref { return Ref{Kind: KindConsumer, Index: usageCode} }

// Custom builds a literal custom-code Ref.
func Custom(code uint8) Ref { return Ref{Kind: KindCustom, Index: uint16(code)} }

// Direction enumerates the four axes mouse cursor/wheel keys can move.
type Direction uint8

const (
	DirLeft Direction = iota
	DirRight
	DirUp
	DirDown
)

// MouseButton builds a Ref for mouse button 1..8.
func MouseButton(button uint8) Ref { return Ref{Kind: KindMouseButton, Index: uint16(button)} }

// MouseCursor builds a Ref for a cursor-move key in the given direction.
func MouseCursor(dir Direction) Ref { return Ref{Kind: KindMouseCursor, Index: uint16(dir)} }

// MouseWheel builds a Ref for a wheel-scroll key in the given direction.
func MouseWheel(dir Direction) Ref { return Ref{Kind: KindMouseWheel, Index: uint16(dir)} }

// Callback builds a Ref into system.Callback.
func Callback(index uint16) Ref { return Ref{Kind: KindCallback, Index: index} }

// LayerHold builds a hold-layer-while-pressed modifier Ref.
func LayerHold(layer uint8) Ref { return Ref{Kind: KindLayerHold, Index: uint16(layer)} }

// LayerToggle builds a toggle-layer-on-tap modifier Ref.
func LayerToggle(layer uint8) Ref { return Ref{Kind: KindLayerToggle, Index: uint16(layer)} }

// LayerSticky builds a latch-layer-for-one-key modifier Ref.
func LayerSticky(layer uint8) Ref { return Ref{Kind: KindLayerSticky, Index: uint16(layer)} }

// LayerSetActive builds a Ref into system.LayerSets.
func LayerSetActive(index uint16) Ref { return Ref{Kind: KindLayerSetActive, Index: index} }

// Layered builds a Ref into system.Layered.
func Layered(index uint16) Ref { return Ref{Kind: KindLayered, Index: index} }

// TapHold builds a Ref into system.TapHold.
func TapHold(index uint16) Ref { return Ref{Kind: KindTapHold, Index: index} }

// Chorded builds a Ref into system.Chorded (a primary key of a chord family).
func Chorded(index uint16) Ref { return Ref{Kind: KindChorded, Index: index} }

// ChordedAuxiliary builds a Ref naming a system.Chorded family (a participant-only key).
func ChordedAuxiliary(index uint16) Ref { return Ref{Kind: KindChordedAuxiliary, Index: index} }

// Sticky builds a literal one-shot-modifier Ref.
func Sticky(mods KeyboardModifiers) Ref { return Ref{Kind: KindSticky, Index: uint16(mods)} }

// TapDance builds a Ref into system.TapDance.
func TapDance(index uint16) Ref { return Ref{Kind: KindTapDance, Index: index} }

// CapsWordToggle builds the caps-word toggle Ref.
func CapsWordToggle() Ref { return Ref{Kind: KindCapsWordToggle} }

// KeyboardModifiers is an 8-bit field: LCtrl, LShift, LAlt, LGui, RCtrl,
// RShift, RAlt, RGui, one bit each.
type KeyboardModifiers uint8

const (
	ModLCtrl KeyboardModifiers = 1 << iota
	ModLShift
	ModLAlt
	ModLGui
	ModRCtrl
	ModRShift
	ModRAlt
	ModRGui
)

// Union returns the bitwise-or of the two modifier sets.
func (m KeyboardModifiers) Union(other KeyboardModifiers) KeyboardModifiers { return m | other }

// Intersect returns the bitwise-and of the two modifier sets.
func (m KeyboardModifiers) Intersect(other KeyboardModifiers) KeyboardModifiers { return m & other }

// Has reports whether every bit set in other is also set in m.
func (m KeyboardModifiers) Has(other KeyboardModifiers) bool { return m&other == other }

// IsZero reports whether no modifier bits are set.
func (m KeyboardModifiers) IsZero() bool { return m == 0 }
