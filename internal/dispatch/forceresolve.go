package dispatch

import (
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

// forceImmediateResolve collapses a would-be-pending branch activation to
// its default outcome in one step, for the "never re-pend once resolved"
// rule (spec.md §9, see the resolveBranch doc comment in dispatch.go).
// Each kind's "default" is the outcome it would reach with no further
// input: tap-hold resolves as tap, chorded as its plain Default, tap-dance
// as its first definition, sticky as a held modifier that contributes its
// modifiers until released and never latches, layer-sticky as an inert
// resolved state.
func forceImmediateResolve(sys *system.System, ref keyref.Ref, p PendingKeyState) KeyState {
	switch ref.Kind {
	case keyref.KindTapHold:
		branchRef := p.TapHold.def.Tap
		return KeyState{Kind: ref.Kind, Nested: &NestedKeyState{Ref: branchRef, State: KeyState{Kind: branchRef.Kind}}}
	case keyref.KindChorded, keyref.KindChordedAuxiliary:
		branchRef := p.Chorded.def.Default
		return KeyState{Kind: ref.Kind, Nested: &NestedKeyState{Ref: branchRef, State: KeyState{Kind: branchRef.Kind}}}
	case keyref.KindTapDance:
		branchRef := p.TapDance.def.Defs[0]
		return KeyState{Kind: ref.Kind, Nested: &NestedKeyState{Ref: branchRef, State: KeyState{Kind: branchRef.Kind}}}
	case keyref.KindSticky:
		return KeyState{Kind: ref.Kind, Sticky: &stickyState{mods: p.Sticky.mods, mode: stickyHeld}}
	case keyref.KindLayerSticky:
		return KeyState{Kind: ref.Kind}
	default:
		return KeyState{Kind: ref.Kind}
	}
}
