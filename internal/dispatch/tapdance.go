package dispatch

import (
	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

// tapDanceState is an empty marker type that no other code uses: a
// resolved tap-dance key carries its chosen Def as a nested branch via
// KeyState.Nested, and KeyState has no tap-dance field.
type tapDanceState struct{}

// pendingTapDance counts completed taps while the inter-tap window stays
// open (spec.md §4.7). timeouts counts the scheduled timeouts still
// outstanding, so only the most recently armed one resolves the key.
type pendingTapDance struct {
	def      system.TapDanceDef
	taps     int
	down     bool
	timeouts int
}

// newTapDancePressedKey starts the first tap and arms the inter-tap
// timeout.
func newTapDancePressedKey(sys *system.System, ctx *context.Context, idx keyref.KeymapIndex, ref keyref.Ref) (PressedKeyResult, []keyref.ScheduledEvent) {
	def := sys.TapDanceByIndex(ref.Index)
	scheduled := []keyref.ScheduledEvent{
		keyref.After(ctx.Config.TapDance.TimeoutMS, keyref.Event{Kind: keyref.EventTapDanceTimeout, KeymapIndex: idx}),
	}
	return pending(PendingKeyState{Kind: ref.Kind, TapDance: &pendingTapDance{def: def, taps: 1, down: true, timeouts: 1}}), scheduled
}

// updateTapDancePending implements spec.md §4.7: each press-then-release
// pair while the window is open increments the tap count, and each new
// press restarts the window; on timeout (or the tap count reaching the last defined
// resolution) it resolves as d_min(taps-1, len(Defs)-1), i.e. extra taps
// beyond the last definition repeat the last one rather than erroring.
func updateTapDancePending(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref, p *PendingKeyState, ev keyref.Event) (*KeyState, []keyref.Event, []keyref.ScheduledEvent) {
	td := p.TapDance

	switch {
	case ev.IsPressOf(idx) && !td.down:
		td.down = true
		td.taps++
		td.timeouts++
		return nil, nil, []keyref.ScheduledEvent{
			keyref.After(ctx.Config.TapDance.TimeoutMS, keyref.Event{Kind: keyref.EventTapDanceTimeout, KeymapIndex: idx}),
		}

	case ev.IsReleaseOf(idx):
		td.down = false
		if td.taps >= len(td.def.Defs) {
			return resolveTapDance(sys, ctx, nowMS, idx, ref, td, nil)
		}
		return nil, nil, nil

	case ev.Kind == keyref.EventTapDanceTimeout && ev.KeymapIndex == idx:
		td.timeouts--
		if td.timeouts > 0 {
			return nil, nil, nil
		}
		return resolveTapDance(sys, ctx, nowMS, idx, ref, td, nil)

	case ev.Kind == keyref.EventInputPress && ev.KeymapIndex != idx:
		p.observe(ev)
		return nil, nil, nil

	default:
		p.observe(ev)
		return nil, nil, nil
	}
}

func resolveTapDance(sys *system.System, ctx *context.Context, nowMS uint32, idx keyref.KeymapIndex, ref keyref.Ref, td *pendingTapDance, replay []keyref.Event) (*KeyState, []keyref.Event, []keyref.ScheduledEvent) {
	n := td.taps - 1
	if n >= len(td.def.Defs) {
		n = len(td.def.Defs) - 1
	}
	if n < 0 {
		n = 0
	}
	branchRef := td.def.Defs[n]
	branchState, scheduled := resolveBranch(sys, ctx, nowMS, idx, branchRef, 0)
	state := KeyState{Kind: ref.Kind, Nested: &NestedKeyState{Ref: branchRef, State: branchState}}
	return &state, replay, scheduled
}
