package dispatch

import (
	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

// chordedState is a resolved chorded key's outcome: either the plain
// default Ref activated as a nested key (tracked via KeyState.Nested, not
// here), or a recognized chord, tracked here so its member indices'
// releases can all be mapped back to this one pressed-key slot
// (spec.md §4.6).
type chordedState struct {
	chord   system.ChordDef
	primary keyref.KeymapIndex
}

// pendingChorded accumulates presses of a chord family's member keys
// within the recognition window (spec.md §4.6). Declaration order in
// ChordedDef.Chords breaks ties between multiple chords whose member sets
// are simultaneously satisfiable: the engine's DESIGN.md decision is that
// the earliest-declared fully-satisfied chord wins.
type pendingChorded struct {
	def     system.ChordedDef
	primary keyref.KeymapIndex
	pressed []keyref.KeymapIndex
}

// newChordedPressedKey starts a chorded family's recognition window for a
// KindChorded key. A ChordedAuxiliary key never starts its own window: a
// standalone auxiliary press resolves here to an inert state, and an
// auxiliary press made while a primary is pending is routed by
// internal/engine to that primary (via IsPendingChordMember) instead of
// reaching this function.
func newChordedPressedKey(sys *system.System, ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref) (PressedKeyResult, []keyref.ScheduledEvent) {
	if ref.Kind == keyref.KindChordedAuxiliary {
		// Reached only if an auxiliary key is pressed with no chord family
		// currently pending on it; spec.md §4.6 treats a standalone
		// auxiliary press as a no-op placeholder that produces no output
		// until a primary's pending window picks it up.
		return resolved(KeyState{Kind: ref.Kind}), nil
	}
	def := sys.ChordedByIndex(ref.Index)
	timeoutMS := def.TimeoutMS
	if timeoutMS == 0 {
		timeoutMS = ctx.Config.Chorded.TimeoutMS
	}
	scheduled := []keyref.ScheduledEvent{
		keyref.After(timeoutMS, keyref.Event{Kind: keyref.EventChordedTimeout, KeymapIndex: idx}),
	}
	return pending(PendingKeyState{
		Kind:    ref.Kind,
		Chorded: &pendingChorded{def: def, primary: idx, pressed: []keyref.KeymapIndex{idx}},
	}), scheduled
}

// updateChordedPending accumulates member presses, resolves to the
// earliest-declared chord whose full member set has been pressed, falls
// back to the smallest subset match on an early release, and resolves to
// Default on timeout or an unrelated key's press (spec.md §4.6).
func updateChordedPending(sys *system.System, ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref, p *PendingKeyState, ev keyref.Event) (*KeyState, []keyref.Event, []keyref.ScheduledEvent) {
	pc := p.Chorded

	if ev.Kind == keyref.EventInputPress {
		if containsIndex(pc.pressed, ev.KeymapIndex) {
			return nil, nil, nil
		}
		if !chordFamilyHasMember(pc.def, ev.KeymapIndex) {
			return resolveChordedAs(sys, ctx, idx, ref, nil, []keyref.Event{ev})
		}
		pc.pressed = append(pc.pressed, ev.KeymapIndex)
		if chord, ok := matchExactChord(pc.def, pc.pressed); ok {
			return resolveChordedAs(sys, ctx, idx, ref, &chord, nil)
		}
		return nil, nil, nil
	}

	if ev.Kind == keyref.EventInputRelease && containsIndex(pc.pressed, ev.KeymapIndex) {
		if chord, ok := matchSmallestSubsetChord(pc.def, pc.pressed); ok {
			return resolveChordedAs(sys, ctx, idx, ref, &chord, []keyref.Event{ev})
		}
		return resolveChordedAs(sys, ctx, idx, ref, nil, []keyref.Event{ev})
	}

	if ev.Kind == keyref.EventChordedTimeout && ev.KeymapIndex == idx {
		return resolveChordedAs(sys, ctx, idx, ref, nil, nil)
	}

	return nil, nil, nil
}

func resolveChordedAs(sys *system.System, ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref, chord *system.ChordDef, replay []keyref.Event) (*KeyState, []keyref.Event, []keyref.ScheduledEvent) {
	if chord != nil {
		state := KeyState{Kind: ref.Kind, Chorded: &chordedState{chord: *chord, primary: idx}}
		return &state, replay, nil
	}
	branchState, scheduled := resolveBranch(sys, ctx, 0, idx, defaultRefFor(sys, ref), 0)
	state := KeyState{Kind: ref.Kind, Nested: &NestedKeyState{Ref: defaultRefFor(sys, ref), State: branchState}}
	return &state, replay, scheduled
}

func defaultRefFor(sys *system.System, ref keyref.Ref) keyref.Ref {
	return sys.ChordedByIndex(ref.Index).Default
}

func containsIndex(xs []keyref.KeymapIndex, x keyref.KeymapIndex) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func chordFamilyHasMember(def system.ChordedDef, idx keyref.KeymapIndex) bool {
	for _, chord := range def.Chords {
		if containsIndex(chord.Indices, idx) {
			return true
		}
	}
	return false
}

// matchExactChord returns the earliest-declared chord whose member set
// equals pressed exactly.
func matchExactChord(def system.ChordedDef, pressed []keyref.KeymapIndex) (system.ChordDef, bool) {
	for _, chord := range def.Chords {
		if sameMemberSet(chord.Indices, pressed) {
			return chord, true
		}
	}
	return system.ChordDef{}, false
}

// matchSmallestSubsetChord returns the earliest-declared chord whose
// member set is fully contained in pressed, smallest member count first
// (an early release collapses to whatever smaller chord was already
// fully satisfied, per spec.md §4.6).
func matchSmallestSubsetChord(def system.ChordedDef, pressed []keyref.KeymapIndex) (system.ChordDef, bool) {
	var best system.ChordDef
	found := false
	for _, chord := range def.Chords {
		if !isSubset(chord.Indices, pressed) {
			continue
		}
		if !found || len(chord.Indices) < len(best.Indices) {
			best, found = chord, true
		}
	}
	return best, found
}

func sameMemberSet(a, b []keyref.KeymapIndex) bool {
	if len(a) != len(b) {
		return false
	}
	return isSubset(a, b)
}

func isSubset(a, b []keyref.KeymapIndex) bool {
	for _, v := range a {
		if !containsIndex(b, v) {
			return false
		}
	}
	return true
}

// updateChordedResolvedState does nothing: a resolved chord keeps no
// per-event state here. internal/engine tracks the members' releases
// itself (pressedSlot.chordReleased) and removes the slot once they have
// all been released.
func updateChordedResolvedState(idx keyref.KeymapIndex, state *KeyState, ev keyref.Event) []keyref.ScheduledEvent {
	return nil
}

// chordedKeyOutput contributes a resolved chord's Ref output directly
// (chords resolve to a literal-kind Ref in every scenario spec.md §8
// exercises, so no further nesting is dispatched here).
func chordedKeyOutput(sys *system.System, state KeyState) (keyref.KeyOutput, bool) {
	if state.Chorded == nil {
		return keyref.KeyOutput{}, false
	}
	return simpleKeyOutput(sys, state.Chorded.chord.Resolved)
}
