package dispatch

import (
	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

// pendingTapHold is the pending state of a tap-hold key awaiting either its
// timeout, an interrupting key, or its own release (spec.md §4.5).
type pendingTapHold struct {
	def system.TapHoldDef
}

// newTapHoldPressedKey starts a tap-hold key's pending window, unless
// required_idle_time_ms gates it straight to an immediate tap resolution
// (spec.md §4.5: "a tap-hold key pressed shortly after releasing another
// keyboard key resolves as tap immediately, skipping the hold window, to
// avoid misinterpreting fast typing as a hold").
func newTapHoldPressedKey(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref) (PressedKeyResult, []keyref.ScheduledEvent) {
	def := sys.TapHoldByIndex(ref.Index)
	cfg := ctx.Config.TapHold

	if cfg.RequiredIdleTimeMS > 0 && ctx.RecentlyReleasedKeyboardKey(nowMS, cfg.RequiredIdleTimeMS) {
		state, events := resolveBranch(sys, ctx, nowMS, idx, def.Tap, 0)
		return resolved(KeyState{Kind: ref.Kind, Nested: &NestedKeyState{Ref: def.Tap, State: state}}), events
	}

	scheduled := []keyref.ScheduledEvent{
		keyref.After(cfg.TimeoutMS, keyref.Event{Kind: keyref.EventTapHoldTimeout, KeymapIndex: idx}),
	}
	return pending(PendingKeyState{Kind: ref.Kind, TapHold: &pendingTapHold{def: def}}), scheduled
}

// updateTapHoldPending implements the pending tap-hold state machine
// (spec.md §4.5): timeout resolves as hold; a same-key release before
// timeout resolves as tap; an interrupting key resolves as hold when the
// configured InterruptResponse says so (HoldOnKeyPress on its press,
// HoldOnKeyTap on the release of a key pressed during the window), and is
// otherwise only observed.
func updateTapHoldPending(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref, p *PendingKeyState, ev keyref.Event) (*KeyState, []keyref.Event, []keyref.ScheduledEvent) {
	def := p.TapHold.def
	cfg := ctx.Config.TapHold

	switch {
	case ev.Kind == keyref.EventTapHoldTimeout && ev.KeymapIndex == idx:
		return resolveTapHoldAs(sys, ctx, nowMS, idx, ref, def.Hold, nil)

	case ev.IsReleaseOf(idx):
		return resolveTapHoldAs(sys, ctx, nowMS, idx, ref, def.Tap, []keyref.Event{ev})

	case ev.Kind == keyref.EventInputPress && ev.KeymapIndex != idx:
		switch cfg.InterruptResponse {
		case context.InterruptHoldOnKeyPress:
			return resolveTapHoldAs(sys, ctx, nowMS, idx, ref, def.Hold, []keyref.Event{ev})
		default:
			p.observe(ev)
			return nil, nil, nil
		}

	case ev.Kind == keyref.EventInputRelease && ev.KeymapIndex != idx:
		switch cfg.InterruptResponse {
		case context.InterruptHoldOnKeyTap:
			for _, o := range p.Observed {
				if o.IsPressOf(ev.KeymapIndex) {
					replay := append([]keyref.Event(nil), p.Observed...)
					replay = append(replay, ev)
					return resolveTapHoldAs(sys, ctx, nowMS, idx, ref, def.Hold, replay)
				}
			}
			p.observe(ev)
			return nil, nil, nil
		default:
			p.observe(ev)
			return nil, nil, nil
		}

	default:
		p.observe(ev)
		return nil, nil, nil
	}
}

// resolveTapHoldAs activates branchRef as the tap-hold key's resolved
// branch, wraps it, and returns the events to replay into it.
func resolveTapHoldAs(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref, branchRef keyref.Ref, replay []keyref.Event) (*KeyState, []keyref.Event, []keyref.ScheduledEvent) {
	branchState, scheduled := resolveBranch(sys, ctx, nowMS, idx, branchRef, 0)
	state := KeyState{Kind: ref.Kind, Nested: &NestedKeyState{Ref: branchRef, State: branchState}}
	return &state, replay, scheduled
}
