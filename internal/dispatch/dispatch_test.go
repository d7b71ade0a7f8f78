package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

func TestForceImmediateResolveTapHoldDefaultsToTap(t *testing.T) {
	sys := system.New()
	ref := keyref.TapHold(0)
	p := PendingKeyState{TapHold: &pendingTapHold{def: system.TapHoldDef{
		Tap:  keyref.Keyboard(4),
		Hold: keyref.LayerHold(1),
	}}}

	state := forceImmediateResolve(sys, ref, p)

	assert.Equal(t, keyref.KindTapHold, state.Kind)
	if assert.NotNil(t, state.Nested) {
		assert.Equal(t, keyref.Keyboard(4), state.Nested.Ref, "forced resolution must pick the tap branch, never hold")
	}
}

func TestForceImmediateResolveChordedDefaultsToPlain(t *testing.T) {
	sys := system.New()
	ref := keyref.Chorded(0)
	p := PendingKeyState{Chorded: &pendingChorded{def: system.ChordedDef{
		Default: keyref.Keyboard(9),
	}}}

	state := forceImmediateResolve(sys, ref, p)

	if assert.NotNil(t, state.Nested) {
		assert.Equal(t, keyref.Keyboard(9), state.Nested.Ref)
	}
}

func TestForceImmediateResolveTapDancePicksFirstDef(t *testing.T) {
	sys := system.New()
	ref := keyref.TapDance(0)
	p := PendingKeyState{TapDance: &pendingTapDance{def: system.TapDanceDef{
		Defs: []keyref.Ref{keyref.Keyboard(1), keyref.Keyboard(2)},
	}}}

	state := forceImmediateResolve(sys, ref, p)

	if assert.NotNil(t, state.Nested) {
		assert.Equal(t, keyref.Keyboard(1), state.Nested.Ref)
	}
}

func TestForceImmediateResolveStickyBecomesHeld(t *testing.T) {
	sys := system.New()
	ref := keyref.Sticky(keyref.ModLShift)
	p := PendingKeyState{Sticky: &pendingSticky{mods: keyref.ModLShift}}

	state := forceImmediateResolve(sys, ref, p)

	assert.False(t, state.Latched, "a forced sticky resolution must never latch")
	if assert.NotNil(t, state.Sticky) {
		assert.Equal(t, stickyHeld, state.Sticky.mode)
	}
}

func TestIsPendingChordMember(t *testing.T) {
	p := PendingKeyState{Chorded: &pendingChorded{def: system.ChordedDef{
		Chords: []system.ChordDef{{Indices: []keyref.KeymapIndex{2, 3}}},
	}}}

	assert.True(t, IsPendingChordMember(&p, 2))
	assert.True(t, IsPendingChordMember(&p, 3))
	assert.False(t, IsPendingChordMember(&p, 4))
}

func TestResolvedChordMembers(t *testing.T) {
	state := KeyState{Chorded: &chordedState{chord: system.ChordDef{Indices: []keyref.KeymapIndex{5, 6}}}}

	members, ok := ResolvedChordMembers(state)
	assert.True(t, ok)
	assert.Equal(t, []keyref.KeymapIndex{5, 6}, members)

	_, ok = ResolvedChordMembers(KeyState{})
	assert.False(t, ok, "a non-chorded state must report ok=false")
}

func TestMatchExactAndSmallestSubsetChord(t *testing.T) {
	def := system.ChordedDef{
		Chords: []system.ChordDef{
			{Indices: []keyref.KeymapIndex{1, 2}, Resolved: keyref.Keyboard(10)},
			{Indices: []keyref.KeymapIndex{1, 2, 3}, Resolved: keyref.Keyboard(11)},
		},
	}

	chord, ok := matchExactChord(def, []keyref.KeymapIndex{1, 2})
	assert.True(t, ok)
	assert.Equal(t, keyref.Keyboard(10), chord.Resolved)

	_, ok = matchExactChord(def, []keyref.KeymapIndex{1, 2, 3, 4})
	assert.False(t, ok, "an unrelated extra member must not match any declared chord")

	chord, ok = matchSmallestSubsetChord(def, []keyref.KeymapIndex{1, 2, 3})
	assert.True(t, ok)
	assert.Equal(t, keyref.Keyboard(10), chord.Resolved, "the smaller fully-satisfied chord must win over the larger one")
}
