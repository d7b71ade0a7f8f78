package dispatch

import (
	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/keyref"
)

// newCapsWordPressedKey toggles caps-word mode and, when turning it on,
// arms the idle-timeout that auto-terminates it (spec.md §4.9).
func newCapsWordPressedKey(ctx *context.Context, idx keyref.KeymapIndex) (PressedKeyResult, []keyref.ScheduledEvent) {
	ctx.CapsWordActive = !ctx.CapsWordActive
	var scheduled []keyref.ScheduledEvent
	if ctx.CapsWordActive && ctx.Config.CapsWord.IdleTimeoutMS > 0 {
		scheduled = append(scheduled, keyref.After(ctx.Config.CapsWord.IdleTimeoutMS, keyref.Event{
			Kind:        keyref.EventCapsWordIdleTimeout,
			KeymapIndex: idx,
		}))
	}
	return resolved(KeyState{Kind: keyref.KindCapsWordToggle}), scheduled
}

// IsCapsWordTerminator reports whether ref should end caps-word mode on
// press, per the configured terminator set (spec.md §4.9): it is true only
// for a Ref listed in Config.CapsWord.Terminators; every other key leaves
// caps-word active.
func IsCapsWordTerminator(ctx *context.Context, ref keyref.Ref) bool {
	for _, t := range ctx.Config.CapsWord.Terminators {
		if t == ref {
			return true
		}
	}
	return false
}
