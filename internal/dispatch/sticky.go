package dispatch

import (
	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/keyref"
)

// stickyMode distinguishes the two ways a Sticky key can resolve
// (spec.md §4.8).
type stickyMode uint8

const (
	// stickyHeld: an intervening press arrived while the sticky key was
	// still physically down, so it behaves as a regular held modifier for
	// the rest of its physical press.
	stickyHeld stickyMode = iota
	// stickyLatched: the sticky key released with no intervening press, so
	// it latches until the next key's press-then-release consumes it.
	stickyLatched
)

// stickyState is a resolved Sticky key's outcome.
type stickyState struct {
	mods keyref.KeyboardModifiers
	mode stickyMode
}

// pendingSticky awaits either an interrupting press (→ held) or its own
// release with no interruption (→ latched).
type pendingSticky struct {
	mods keyref.KeyboardModifiers
}

// newStickyPressedKey begins the pending window described in spec.md
// §4.8: a sticky key's modifier effect is not yet known until either it is
// released cleanly (latch) or another key interrupts it while still down
// (behave as a held modifier).
func newStickyPressedKey(idx keyref.KeymapIndex, ref keyref.Ref) (PressedKeyResult, []keyref.ScheduledEvent) {
	mods := keyref.KeyboardModifiers(ref.Index)
	return pending(PendingKeyState{Kind: ref.Kind, Sticky: &pendingSticky{mods: mods}}), nil
}

// updateStickyPending resolves on the first interrupting press (held) or
// on the sticky key's own release with none observed (latched).
func updateStickyPending(idx keyref.KeymapIndex, ref keyref.Ref, p *PendingKeyState, ev keyref.Event) (*KeyState, []keyref.Event, []keyref.ScheduledEvent) {
	switch {
	case ev.Kind == keyref.EventInputPress && ev.KeymapIndex != idx:
		state := KeyState{Kind: ref.Kind, Sticky: &stickyState{mods: p.Sticky.mods, mode: stickyHeld}}
		return &state, []keyref.Event{ev}, nil
	case ev.IsReleaseOf(idx):
		state := KeyState{Kind: ref.Kind, Sticky: &stickyState{mods: p.Sticky.mods, mode: stickyLatched}, Latched: true}
		return &state, nil, nil
	default:
		p.observe(ev)
		return nil, nil, nil
	}
}

// updateStickyResolvedState handles a held sticky's own release; a
// latched sticky has nothing left to react to on its own index (its
// unlatching is driven by internal/engine watching for the next key's
// full press-then-release, per the Latched marker on KeyState).
func updateStickyResolvedState(ctx *context.Context, idx keyref.KeymapIndex, state *KeyState, ev keyref.Event) []keyref.ScheduledEvent {
	return nil
}

// stickyKeyOutput contributes the latched/held modifiers for as long as
// this slot remains in the pressed-key table.
func stickyKeyOutput(state KeyState) (keyref.KeyOutput, bool) {
	if state.Sticky == nil {
		return keyref.KeyOutput{}, false
	}
	return keyref.KeyOutput{Modifiers: state.Sticky.mods}, true
}
