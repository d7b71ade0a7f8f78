// Package system holds the per-kind definition arrays a Ref's Index field
// indexes into: the compiled, static "key-data" the external
// configuration-language front-end would have emitted (spec.md §1, §3).
//
// Key components:
//   - KeyboardDef: combined (key code, modifier) pairs for KindKeyboardKeyCodeAndModifier
//   - CallbackDef: (tag, payload) pairs for KindCallback
//   - LayeredDef: a base Ref plus per-layer override Refs
//   - TapHoldDef: a (tap, hold) Ref pair
//   - ChordedDef / ChordDef: chord families and their member index sets
//   - TapDanceDef: an ordered array of per-tap-count Refs
//
// Contributors can extend functionality by adding a new definition slice
// here alongside a new keyref.RefKind.
package system

import "github.com/merith-tk/smart-keymap/internal/keyref"

// KeyboardDef is a combined key-code-and-modifier definition.
type KeyboardDef struct {
	KeyCode   uint8
	Modifiers keyref.KeyboardModifiers
}

// CallbackDef is a user-defined (tag, payload) pair a Callback key emits.
type CallbackDef struct {
	Tag     uint16
	Payload uint16
}

// LayeredDef is a base key plus an override Ref for each layer above the
// base; an override at index i (0-based) applies when layer i+1 is
// active. A zero-value Ref in Overlays (Kind==0, Index==0, meaning
// KindKeyboardKeyCode with code 0) is never a valid "no override" marker on
// its own, so HasOverlay tracks presence explicitly per layer.
type LayeredDef struct {
	Base     keyref.Ref
	Overlays []keyref.Ref
	HasOverlay []bool
}

// TapHoldDef is a key that resolves to one of two Refs depending on timing.
type TapHoldDef struct {
	Tap  keyref.Ref
	Hold keyref.Ref
}

// ChordDef is one chord within a chorded family: the set of keymap indices
// that must all be pressed, and the Ref the chord resolves to. Order in
// the owning ChordedDef.Chords slice is the declaration order used to
// break ties between overlapping chords (spec.md §9 open question).
type ChordDef struct {
	Indices []keyref.KeymapIndex
	Resolved keyref.Ref
}

// ChordedDef is a chorded family's primary key: its plain (non-chord)
// default Ref, the window in which a chord can be recognized, and the
// chords it can resolve to.
type ChordedDef struct {
	Default   keyref.Ref
	TimeoutMS uint32
	Chords    []ChordDef
}

// TapDanceDef is an ordered array of per-tap-count resolutions.
type TapDanceDef struct {
	Defs []keyref.Ref
}

// LayerSet is a replacement active-layer bitset for KindLayerSetActive.
type LayerSet struct {
	Layers uint32 // bit i = layer i active
}

// System is the registry every Ref with a non-literal Index resolves
// against.
type System struct {
	Keyboard   []KeyboardDef
	Callback   []CallbackDef
	Layered    []LayeredDef
	TapHold    []TapHoldDef
	Chorded    []ChordedDef
	TapDance   []TapDanceDef
	LayerSets  []LayerSet
}

// New constructs an empty System; callers append definitions (typically via
// internal/config's YAML loader) before passing it to the engine.
func New() *System {
	return &System{}
}

// KeyboardByIndex validates and returns a KeyboardDef. A Ref whose index is
// out of range is an invalid-reference programming error (spec.md §7) and
// panics, since valid references are generated and validated once at
// construction by the external codegen.
func (s *System) KeyboardByIndex(idx uint16) KeyboardDef {
	return mustIndex(s.Keyboard, idx, "Keyboard")
}

func (s *System) CallbackByIndex(idx uint16) CallbackDef {
	return mustIndex(s.Callback, idx, "Callback")
}

func (s *System) LayeredByIndex(idx uint16) LayeredDef {
	return mustIndex(s.Layered, idx, "Layered")
}

func (s *System) TapHoldByIndex(idx uint16) TapHoldDef {
	return mustIndex(s.TapHold, idx, "TapHold")
}

func (s *System) ChordedByIndex(idx uint16) ChordedDef {
	return mustIndex(s.Chorded, idx, "Chorded")
}

func (s *System) TapDanceByIndex(idx uint16) TapDanceDef {
	return mustIndex(s.TapDance, idx, "TapDance")
}

func (s *System) LayerSetByIndex(idx uint16) LayerSet {
	return mustIndex(s.LayerSets, idx, "LayerSet")
}

func mustIndex[T any](arr []T, idx uint16, kind string) T {
	if int(idx) >= len(arr) {
		panic("system: invalid " + kind + " reference index " + itoa(idx))
	}
	return arr[idx]
}

func itoa(n uint16) string {
	if n == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
