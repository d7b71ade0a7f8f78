// Package dispatch implements the composite dispatcher (spec.md §4.2): the
// tagged-Ref-to-per-kind-behavior switch every pressed key in the keymap
// core routes through, including the bounded-depth recursion layered and
// tap-hold keys need to activate a nested branch.
//
// Each key kind's logic lives in its own file (simple.go, layered.go,
// taphold.go, chorded.go, tapdance.go, sticky.go, capsword.go) — mirroring
// the "per-system key modules" component boundaries in spec.md's component
// table — but all share this package so a branch key (e.g. tap-hold's hold
// arm) can recurse back into the dispatcher without an import cycle.
//
// Grounded on original_source/src/key/composite/base.rs's BaseKey
// match-dispatch, translated from Rust's closed enum to a Go RefKind
// switch (the same translation gdamore-tcell uses for its Event interface
// family, one flat tag instead of one type per variant).
package dispatch

import (
	"fmt"

	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

// maxNestingDepth bounds layered/tap-hold/chorded/tap-dance branch
// recursion (spec.md §4.4, §9).
const maxNestingDepth = 4

// NestedKeyState records a resolved key's activated branch: the Ref that
// was dispatched and the resulting state, recursively. Layered, tap-hold,
// chorded and tap-dance resolution all bottom out in a nested branch
// activation (spec.md §4.5's "activated as a freshly pressed key").
type NestedKeyState struct {
	Ref   keyref.Ref
	State KeyState
}

// KeyState is the resolved runtime state of a pressed key (spec.md §3).
// Exactly one of the kind-specific fields is meaningful, selected by Kind;
// most kinds need no extra state at all (Nested == nil, all kind fields
// nil) and only contribute output via their Ref's literal fields.
type KeyState struct {
	Kind    keyref.RefKind
	Nested  *NestedKeyState
	Sticky  *stickyState
	Chorded *chordedState

	// Latched marks a one-shot modifier (Sticky or LayerSticky) that has
	// latched awaiting the next key's full press-then-release to consume
	// it (spec.md §4.4, §4.8). internal/engine prunes a latched slot once
	// it observes that consumption, rather than on the slot's own release.
	Latched bool
}

// PendingKeyState is the state of a key whose resolution awaits more input
// (spec.md §3). The keymap core's pressed-key table does not limit how
// many of these it holds: a press that no pending key claims can start
// another, and each pending key is then given every event.
type PendingKeyState struct {
	Kind     keyref.RefKind
	Observed []keyref.Event
	Nested   *pendingNested
	TapHold  *pendingTapHold
	Chorded  *pendingChorded
	TapDance *pendingTapDance
	Sticky   *pendingSticky
}

// pendingNested is set when a wrapper kind (Layered) is pending because
// the branch it delegated to is itself pending.
type pendingNested struct {
	Ref     keyref.Ref
	Pending PendingKeyState
}

func (p *PendingKeyState) observe(ev keyref.Event) {
	const maxObserved = 8
	if len(p.Observed) >= maxObserved {
		panic("dispatch: pending key's observed-event queue capacity exceeded")
	}
	p.Observed = append(p.Observed, ev)
}

// PressedKeyResult is either a resolved KeyState or a PendingKeyState
// awaiting more input (spec.md §3).
type PressedKeyResult struct {
	IsPending bool
	Resolved  KeyState
	Pending   PendingKeyState
}

func resolved(state KeyState) PressedKeyResult { return PressedKeyResult{Resolved: state} }

func pending(p PendingKeyState) PressedKeyResult {
	return PressedKeyResult{IsPending: true, Pending: p}
}

// NewPressedKey creates the initial state for a just-pressed key, possibly
// scheduling follow-up events (spec.md §4.2).
func NewPressedKey(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref) (PressedKeyResult, []keyref.ScheduledEvent) {
	return newPressedKeyDepth(sys, ctx, nowMS, idx, ref, 0)
}

func newPressedKeyDepth(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref, depth int) (PressedKeyResult, []keyref.ScheduledEvent) {
	if depth > maxNestingDepth {
		panic("dispatch: key reference nesting exceeds bounded depth")
	}
	switch ref.Kind {
	case keyref.KindKeyboardKeyCode, keyref.KindKeyboardModifiers, keyref.KindKeyboardKeyCodeAndModifier,
		keyref.KindConsumer, keyref.KindMouseButton, keyref.KindMouseCursor, keyref.KindMouseWheel,
		keyref.KindCustom, keyref.KindCallback:
		return newSimplePressedKey(sys, idx, ref)
	case keyref.KindCapsWordToggle:
		return newCapsWordPressedKey(ctx, idx)
	case keyref.KindLayerHold, keyref.KindLayerToggle, keyref.KindLayerSetActive:
		return newLayerModifierPressedKey(sys, ctx, idx, ref)
	case keyref.KindLayerSticky:
		return newLayerStickyPressedKey(ctx, idx, ref)
	case keyref.KindLayered:
		return newLayeredPressedKey(sys, ctx, nowMS, idx, ref, depth)
	case keyref.KindTapHold:
		return newTapHoldPressedKey(sys, ctx, nowMS, idx, ref)
	case keyref.KindChorded, keyref.KindChordedAuxiliary:
		return newChordedPressedKey(sys, ctx, idx, ref)
	case keyref.KindSticky:
		return newStickyPressedKey(idx, ref)
	case keyref.KindTapDance:
		return newTapDancePressedKey(sys, ctx, idx, ref)
	default:
		panic(fmt.Sprintf("dispatch: invalid key reference kind %v", ref.Kind))
	}
}

// resolveBranch activates branchRef as a freshly pressed key (spec.md
// §4.5) and wraps the result as the outer kind's nested state. Per the
// design note in spec.md §9 ("once resolved, a key never returns to
// pending"), if the branch itself would normally go pending, it is forced
// to its default resolution immediately instead — composing two
// timing-sensitive composite kinds (e.g. a tap-hold key's hold arm being
// itself a tap-dance key) is not exercised by the scenarios in spec.md §8,
// and forcing immediate resolution keeps the single-pending-slot
// invariant intact.
func resolveBranch(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, branchRef keyref.Ref, depth int) (KeyState, []keyref.ScheduledEvent) {
	result, events := newPressedKeyDepth(sys, ctx, nowMS, idx, branchRef, depth+1)
	state := result.Resolved
	if result.IsPending {
		state = forceImmediateResolve(sys, branchRef, result.Pending)
	}
	return state, events
}

// UpdatePending advances a pending key's state toward resolution. If it
// resolves, the replacement resolved state and the intervening events to
// replay (in original order) are returned; the caller (internal/engine) is
// responsible for replaying them into the resolved branch.
func UpdatePending(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref, p *PendingKeyState, ev keyref.Event) (resolvedState *KeyState, replay []keyref.Event, scheduled []keyref.ScheduledEvent) {
	switch ref.Kind {
	case keyref.KindLayered:
		return updateLayeredPending(sys, ctx, nowMS, idx, ref, p, ev)
	case keyref.KindTapHold:
		return updateTapHoldPending(sys, ctx, nowMS, idx, ref, p, ev)
	case keyref.KindChorded, keyref.KindChordedAuxiliary:
		return updateChordedPending(sys, ctx, idx, ref, p, ev)
	case keyref.KindTapDance:
		return updateTapDancePending(sys, ctx, nowMS, idx, ref, p, ev)
	case keyref.KindSticky:
		return updateStickyPending(idx, ref, p, ev)
	case keyref.KindLayerSticky:
		return updateLayerStickyPending(ctx, idx, ref, p, ev)
	default:
		panic(fmt.Sprintf("dispatch: kind %v never goes pending", ref.Kind))
	}
}

// UpdateState feeds an event to an already-resolved key (layer modifier
// release, sticky unlatching, chorded hold release, etc).
func UpdateState(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref, state *KeyState, ev keyref.Event) []keyref.ScheduledEvent {
	if state.Nested != nil {
		events := UpdateState(sys, ctx, nowMS, idx, state.Nested.Ref, &state.Nested.State, ev)
		// The outer kind may still need its own bookkeeping (e.g. Layered
		// has none, but kept symmetric for future wrapper kinds).
		return events
	}
	switch ref.Kind {
	case keyref.KindLayerHold:
		return updateLayerHoldState(ctx, idx, ref, ev)
	case keyref.KindLayerToggle:
		return updateLayerToggleState(ctx, idx, ref, ev)
	case keyref.KindLayerSticky:
		return updateLayerStickyResolvedState(ctx, idx, ref, state, ev)
	case keyref.KindSticky:
		return updateStickyResolvedState(ctx, idx, state, ev)
	case keyref.KindChorded, keyref.KindChordedAuxiliary:
		return updateChordedResolvedState(idx, state, ev)
	default:
		return nil
	}
}

// KeyOutput returns this key's current contribution to the output report.
func KeyOutput(sys *system.System, ctx *context.Context, ref keyref.Ref, state KeyState) (keyref.KeyOutput, bool) {
	out, ok := keyOutputInner(sys, ctx, ref, state)
	if ok && ctx.CapsWordActive && out.HasKeyCode {
		out.Modifiers = out.Modifiers.Union(keyref.ModLShift)
	}
	return out, ok
}

func keyOutputInner(sys *system.System, ctx *context.Context, ref keyref.Ref, state KeyState) (keyref.KeyOutput, bool) {
	if state.Nested != nil {
		return KeyOutput(sys, ctx, state.Nested.Ref, state.Nested.State)
	}
	switch ref.Kind {
	case keyref.KindKeyboardKeyCode, keyref.KindKeyboardModifiers, keyref.KindKeyboardKeyCodeAndModifier,
		keyref.KindConsumer, keyref.KindMouseButton, keyref.KindMouseCursor, keyref.KindMouseWheel,
		keyref.KindCustom, keyref.KindCallback:
		return simpleKeyOutput(sys, ref)
	case keyref.KindSticky:
		return stickyKeyOutput(state)
	case keyref.KindChorded, keyref.KindChordedAuxiliary:
		return chordedKeyOutput(sys, state)
	default:
		return keyref.KeyOutput{}, false
	}
}
