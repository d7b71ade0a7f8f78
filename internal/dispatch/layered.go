package dispatch

import (
	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

// newLayerModifierPressedKey handles LayerHold, LayerToggle and
// LayerSetActive (spec.md §4.4); none of these go pending. LayerHold and
// LayerSetActive apply their effect to Context immediately on press;
// LayerToggle waits for its release (see updateLayerToggleState).
func newLayerModifierPressedKey(sys *system.System, ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref) (PressedKeyResult, []keyref.ScheduledEvent) {
	switch ref.Kind {
	case keyref.KindLayerHold:
		ctx.ActivateLayer(uint8(ref.Index))
	case keyref.KindLayerSetActive:
		set := sys.LayerSetByIndex(ref.Index)
		ctx.SetActiveLayers(set.Layers)
	}
	return resolved(KeyState{Kind: ref.Kind}), nil
}

// updateLayerHoldState deactivates the held layer on release.
func updateLayerHoldState(ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref, ev keyref.Event) []keyref.ScheduledEvent {
	if ev.IsReleaseOf(idx) {
		ctx.DeactivateLayer(uint8(ref.Index))
	}
	return nil
}

// updateLayerToggleState flips the toggled layer on release, so each
// completed press-then-release tap flips it once (spec.md §4.4).
func updateLayerToggleState(ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref, ev keyref.Event) []keyref.ScheduledEvent {
	if ev.IsReleaseOf(idx) {
		ctx.ToggleLayer(uint8(ref.Index))
	}
	return nil
}

// newLayerStickyPressedKey activates the layer immediately (so it is
// already in effect for anything pressed while this key is itself still
// down) and goes pending to learn, mirroring plain Sticky (spec.md §4.8
// applied to §4.4's layer modifiers): an interrupting press while still
// held converts it to a regular Hold; a clean release with no
// interruption latches it for the next key's press-then-release to
// consume.
func newLayerStickyPressedKey(ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref) (PressedKeyResult, []keyref.ScheduledEvent) {
	ctx.LatchStickyLayer(uint8(ref.Index))
	return pending(PendingKeyState{Kind: ref.Kind}), nil
}

// updateLayerStickyPending resolves to Hold on an interrupting press, or
// to a Latched state on a clean release; internal/engine is responsible
// for calling Context.ConsumeStickyLayer once it observes the next key's
// full press-then-release after a Latched resolution (same consumption
// tracking it uses for plain Sticky, keyed off KeyState.Latched).
func updateLayerStickyPending(ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref, p *PendingKeyState, ev keyref.Event) (*KeyState, []keyref.Event, []keyref.ScheduledEvent) {
	switch {
	case ev.Kind == keyref.EventInputPress && ev.KeymapIndex != idx:
		ctx.HoldStickyLayer(uint8(ref.Index))
		state := KeyState{Kind: ref.Kind}
		return &state, []keyref.Event{ev}, nil
	case ev.IsReleaseOf(idx):
		state := KeyState{Kind: ref.Kind, Latched: true}
		return &state, nil, nil
	default:
		p.observe(ev)
		return nil, nil, nil
	}
}

// updateLayerStickyResolvedState deactivates a held sticky layer on its
// own release (the Hold-conversion branch of updateLayerStickyPending); a
// Latched resolution has nothing left to react to on its own index.
func updateLayerStickyResolvedState(ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref, state *KeyState, ev keyref.Event) []keyref.ScheduledEvent {
	if !state.Latched && ev.IsReleaseOf(idx) {
		ctx.ReleaseStickyLayerHold(uint8(ref.Index))
	}
	return nil
}

// newLayeredPressedKey looks up the highest active layer's override (or
// the base Ref if none applies) and activates it as a nested key
// (spec.md §4.4). If that branch itself goes pending, Layered stays
// pending too, wrapping the branch's pending state.
func newLayeredPressedKey(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref, depth int) (PressedKeyResult, []keyref.ScheduledEvent) {
	def := sys.LayeredByIndex(ref.Index)
	branch := resolveLayeredBranch(ctx, def)

	result, events := newPressedKeyDepth(sys, ctx, nowMS, idx, branch, depth+1)
	if result.IsPending {
		return pending(PendingKeyState{
			Kind:   ref.Kind,
			Nested: &pendingNested{Ref: branch, Pending: result.Pending},
		}), events
	}
	return resolved(KeyState{Kind: ref.Kind, Nested: &NestedKeyState{Ref: branch, State: result.Resolved}}), events
}

// resolveLayeredBranch picks the override Ref for the highest active layer
// that has one, falling back to the base Ref (spec.md §4.4). Active layers
// are checked from the highest down, so an active layer without an
// override for this key falls through to the next active layer below it.
func resolveLayeredBranch(ctx *context.Context, def system.LayeredDef) keyref.Ref {
	for layer := int(ctx.HighestActiveLayer()); layer >= 1; layer-- {
		if !ctx.IsLayerActive(uint8(layer)) {
			continue
		}
		overlayIdx := layer - 1
		if overlayIdx < len(def.HasOverlay) && def.HasOverlay[overlayIdx] {
			return def.Overlays[overlayIdx]
		}
	}
	return def.Base
}

// updateLayeredPending forwards events to the wrapped branch's pending
// state and unwraps once it resolves.
func updateLayeredPending(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref, p *PendingKeyState, ev keyref.Event) (*KeyState, []keyref.Event, []keyref.ScheduledEvent) {
	nested := p.Nested
	branchState, replay, scheduled := UpdatePending(sys, ctx, nowMS, idx, nested.Ref, &nested.Pending, ev)
	if branchState == nil {
		return nil, nil, scheduled
	}
	state := KeyState{Kind: ref.Kind, Nested: &NestedKeyState{Ref: nested.Ref, State: *branchState}}
	return &state, replay, scheduled
}
