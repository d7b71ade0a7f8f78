package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
)

// Keymap index layout shared by the tests in this file:
//
//	0  keyboard 'a' (4)
//	1  tap-hold: tap -> keyboard 'b' (5), hold -> LayerHold(1)
//	2  layered: base -> keyboard 'c' (6), layer 1 override -> keyboard 'd' (7)
//	3  sticky LShift
//	4  tap-dance: 1 tap -> keyboard 'e' (8), 2 taps -> keyboard 'f' (9)
//	5  chorded primary: default -> keyboard 'g' (10), chord [5,6] -> keyboard 'h' (11)
//	6  chorded auxiliary for index 5's family
//	7  caps-word toggle
//	8  keyboard 'i' (12), not a caps-word terminator
//	9  keyboard space (44), configured as a caps-word terminator
const (
	idxA         keyref.KeymapIndex = 0
	idxTapHold   keyref.KeymapIndex = 1
	idxLayered   keyref.KeymapIndex = 2
	idxSticky    keyref.KeymapIndex = 3
	idxTapDance  keyref.KeymapIndex = 4
	idxChordPri  keyref.KeymapIndex = 5
	idxChordAux  keyref.KeymapIndex = 6
	idxCapsWord  keyref.KeymapIndex = 7
	idxM         keyref.KeymapIndex = 8
	idxSpace     keyref.KeymapIndex = 9
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	refs := make([]keyref.Ref, 10)
	refs[idxA] = keyref.Keyboard(4)
	refs[idxTapHold] = keyref.TapHold(0)
	refs[idxLayered] = keyref.Layered(0)
	refs[idxSticky] = keyref.Sticky(keyref.ModLShift)
	refs[idxTapDance] = keyref.TapDance(0)
	refs[idxChordPri] = keyref.Chorded(0)
	refs[idxChordAux] = keyref.ChordedAuxiliary(0)
	refs[idxCapsWord] = keyref.CapsWordToggle()
	refs[idxM] = keyref.Keyboard(12)
	refs[idxSpace] = keyref.Keyboard(44)

	sys := system.New()
	sys.TapHold = []system.TapHoldDef{
		{Tap: keyref.Keyboard(5), Hold: keyref.LayerHold(1)},
	}
	sys.Layered = []system.LayeredDef{
		{Base: keyref.Keyboard(6), Overlays: []keyref.Ref{keyref.Keyboard(7)}, HasOverlay: []bool{true}},
	}
	sys.TapDance = []system.TapDanceDef{
		{Defs: []keyref.Ref{keyref.Keyboard(8), keyref.Keyboard(9)}},
	}
	sys.Chorded = []system.ChordedDef{
		{
			Default:   keyref.Keyboard(10),
			TimeoutMS: 50,
			Chords: []system.ChordDef{
				{Indices: []keyref.KeymapIndex{idxChordPri, idxChordAux}, Resolved: keyref.Keyboard(11)},
			},
		},
	}

	cfg := context.DefaultConfig()
	cfg.CapsWord.Terminators = []keyref.Ref{keyref.Keyboard(44)}
	ctx := context.New(cfg)

	eng := New(refs, sys, ctx)
	eng.SetMSPerTick(1)
	return eng
}

func tickN(eng *Engine, n int) {
	for i := 0; i < n; i++ {
		eng.Tick()
	}
}

func TestTapHoldResolvesAsTapOnQuickRelease(t *testing.T) {
	eng := newTestEngine(t)

	eng.HandleInput(keyref.Press(idxTapHold))
	tickN(eng, 1) // input queue delay
	eng.HandleInput(keyref.ReleaseEv(idxTapHold))
	tickN(eng, 1)

	report := eng.ReportOutput()
	assert.Equal(t, []uint8{5}, report.KeyCodes, "a quick tap must resolve to the tap branch's key code")

	tickN(eng, 1)
	assert.Empty(t, eng.ReportOutput().KeyCodes, "the resolved tap is a one-tick virtual press, gone the tick after")
}

func TestTapHoldResolvesAsHoldOnTimeout(t *testing.T) {
	eng := newTestEngine(t)
	eng.SetMSPerTick(50)

	eng.HandleInput(keyref.Press(idxTapHold))
	tickN(eng, 1) // consumes the press, schedules the 200ms timeout
	tickN(eng, 4) // clock 50 -> 250ms; the timeout fires at 200ms, on the third of these ticks

	assert.True(t, eng.ctx.IsLayerActive(1), "timing out unresolved must activate the hold branch's layer")

	eng.HandleInput(keyref.ReleaseEv(idxTapHold))
	tickN(eng, 1)
	assert.False(t, eng.ctx.IsLayerActive(1), "releasing the held tap-hold key must deactivate its layer")
}

func TestTapHoldInterruptHoldOnKeyPress(t *testing.T) {
	eng := newTestEngine(t)
	eng.ctx.Config.TapHold.InterruptResponse = context.InterruptHoldOnKeyPress

	eng.HandleInput(keyref.Press(idxTapHold))
	tickN(eng, 1)
	eng.HandleInput(keyref.Press(idxA))
	tickN(eng, 1)

	assert.True(t, eng.ctx.IsLayerActive(1), "an interrupting press must resolve as hold under InterruptHoldOnKeyPress")
	report := eng.ReportOutput()
	assert.Contains(t, report.KeyCodes, uint8(4), "the interrupting press must be replayed into the now-resolved hold branch")
}

func TestLayeredOverrideByActiveLayer(t *testing.T) {
	eng := newTestEngine(t)

	eng.HandleInput(keyref.Press(idxLayered))
	tickN(eng, 1)
	assert.Equal(t, []uint8{6}, eng.ReportOutput().KeyCodes, "base layer must use the base Ref")
	eng.HandleInput(keyref.ReleaseEv(idxLayered))
	tickN(eng, 1)

	eng.ctx.ActivateLayer(1)
	eng.HandleInput(keyref.Press(idxLayered))
	tickN(eng, 1)
	assert.Equal(t, []uint8{7}, eng.ReportOutput().KeyCodes, "layer 1 active must select its override Ref")
}

func TestStickyLatchesAndIsConsumedByNextKey(t *testing.T) {
	eng := newTestEngine(t)

	eng.HandleInput(keyref.Press(idxSticky))
	tickN(eng, 1)
	eng.HandleInput(keyref.ReleaseEv(idxSticky))
	tickN(eng, 1)

	report := eng.ReportOutput()
	assert.True(t, report.Modifiers.Has(keyref.ModLShift), "a cleanly released sticky key must latch its modifier")

	eng.HandleInput(keyref.Press(idxA))
	tickN(eng, 1)
	report = eng.ReportOutput()
	assert.True(t, report.Modifiers.Has(keyref.ModLShift))
	assert.Equal(t, []uint8{4}, report.KeyCodes)

	eng.HandleInput(keyref.ReleaseEv(idxA))
	tickN(eng, 1)
	report = eng.ReportOutput()
	assert.False(t, report.Modifiers.Has(keyref.ModLShift), "the consuming key's release must unlatch the sticky modifier")
	assert.Empty(t, report.KeyCodes)
}

func TestStickyBehavesAsHeldOnInterrupt(t *testing.T) {
	eng := newTestEngine(t)

	eng.HandleInput(keyref.Press(idxSticky))
	tickN(eng, 1)
	eng.HandleInput(keyref.Press(idxA))
	tickN(eng, 1)

	report := eng.ReportOutput()
	assert.True(t, report.Modifiers.Has(keyref.ModLShift))
	assert.Equal(t, []uint8{4}, report.KeyCodes)

	eng.HandleInput(keyref.ReleaseEv(idxA))
	tickN(eng, 1)
	report = eng.ReportOutput()
	assert.True(t, report.Modifiers.Has(keyref.ModLShift), "interrupted-while-held sticky must keep contributing until its own release")

	eng.HandleInput(keyref.ReleaseEv(idxSticky))
	tickN(eng, 1)
	assert.False(t, eng.ReportOutput().Modifiers.Has(keyref.ModLShift))
}

func TestTapDanceSingleTapResolvesOnTimeout(t *testing.T) {
	eng := newTestEngine(t)
	eng.SetMSPerTick(50)

	eng.HandleInput(keyref.Press(idxTapDance))
	tickN(eng, 1)
	eng.HandleInput(keyref.ReleaseEv(idxTapDance))
	tickN(eng, 1) // released within the window, still counts as one tap so far

	tickN(eng, 2) // 200ms window elapses with no second tap; resolves on the last of these ticks
	assert.Equal(t, []uint8{8}, eng.ReportOutput().KeyCodes, "a single completed tap must resolve to the first definition")
}

func TestTapDanceDoubleTapResolvesImmediately(t *testing.T) {
	eng := newTestEngine(t)

	eng.HandleInput(keyref.Press(idxTapDance))
	tickN(eng, 1)
	eng.HandleInput(keyref.ReleaseEv(idxTapDance))
	tickN(eng, 1)
	eng.HandleInput(keyref.Press(idxTapDance))
	tickN(eng, 1)
	eng.HandleInput(keyref.ReleaseEv(idxTapDance))
	tickN(eng, 1)

	assert.Equal(t, []uint8{9}, eng.ReportOutput().KeyCodes, "a second tap reaching the last definition must resolve without waiting for the timeout")
}

func TestChordedExactMatchResolvesOnSecondMemberPress(t *testing.T) {
	eng := newTestEngine(t)

	eng.HandleInput(keyref.Press(idxChordPri))
	tickN(eng, 1)
	eng.HandleInput(keyref.Press(idxChordAux))
	tickN(eng, 1)

	report := eng.ReportOutput()
	assert.Equal(t, []uint8{11}, report.KeyCodes, "both chord members pressed must resolve to the chord's Ref")

	// The chord slot must survive until every member releases.
	eng.HandleInput(keyref.ReleaseEv(idxChordAux))
	tickN(eng, 1)
	assert.Equal(t, []uint8{11}, eng.ReportOutput().KeyCodes, "one released member must not end the chord while another is still held")

	eng.HandleInput(keyref.ReleaseEv(idxChordPri))
	tickN(eng, 1)
	assert.Empty(t, eng.ReportOutput().KeyCodes, "the chord slot is pruned once every member has released")
}

func TestChordedTimeoutResolvesAsDefault(t *testing.T) {
	eng := newTestEngine(t)
	eng.SetMSPerTick(25)

	eng.HandleInput(keyref.Press(idxChordPri))
	tickN(eng, 1)
	tickN(eng, 2) // 50ms window elapses with no second member

	assert.Equal(t, []uint8{10}, eng.ReportOutput().KeyCodes, "an unmatched chord window must resolve to the family's Default")
}

func TestChordedEarlyReleaseWithNoSatisfiedChordResolvesAsDefault(t *testing.T) {
	eng := newTestEngine(t)

	eng.HandleInput(keyref.Press(idxChordPri))
	tickN(eng, 1)
	// Release the primary before the aux member ever joins: only the
	// single-member "subset" (none declared here) is satisfiable, so this
	// must fall back to Default rather than ever match the two-member chord.
	eng.HandleInput(keyref.ReleaseEv(idxChordPri))
	tickN(eng, 1)

	assert.Equal(t, []uint8{10}, eng.ReportOutput().KeyCodes)
}

func TestCapsWordShiftsLettersUntilTerminator(t *testing.T) {
	eng := newTestEngine(t)

	eng.HandleInput(keyref.Press(idxCapsWord))
	tickN(eng, 1)
	eng.HandleInput(keyref.ReleaseEv(idxCapsWord))
	tickN(eng, 1)
	assert.True(t, eng.ctx.CapsWordActive)

	eng.HandleInput(keyref.Press(idxM))
	tickN(eng, 1)
	report := eng.ReportOutput()
	assert.Equal(t, []uint8{12}, report.KeyCodes)
	assert.True(t, report.Modifiers.Has(keyref.ModLShift), "caps-word must inject shift onto a plain letter key")
	eng.HandleInput(keyref.ReleaseEv(idxM))
	tickN(eng, 1)

	eng.HandleInput(keyref.Press(idxSpace))
	tickN(eng, 1)
	assert.False(t, eng.ctx.CapsWordActive, "a configured terminator key must end caps-word mode")
	report = eng.ReportOutput()
	assert.False(t, report.Modifiers.Has(keyref.ModLShift), "the terminator key itself must not be shifted")
}

func TestCapsWordIdleTimeoutEndsMode(t *testing.T) {
	eng := newTestEngine(t)
	eng.ctx.Config.CapsWord.IdleTimeoutMS = 100
	eng.SetMSPerTick(25)

	eng.HandleInput(keyref.Press(idxCapsWord))
	tickN(eng, 1)
	eng.HandleInput(keyref.ReleaseEv(idxCapsWord))
	tickN(eng, 1)
	require.True(t, eng.ctx.CapsWordActive)

	tickN(eng, 5) // 100ms idle elapses
	assert.False(t, eng.ctx.CapsWordActive, "caps-word must auto-terminate after its idle timeout")
}

func TestCallbackEventIsDrainedOnce(t *testing.T) {
	refs := []keyref.Ref{keyref.Callback(0)}
	sys := system.New()
	sys.Callback = []system.CallbackDef{{Tag: 7, Payload: 42}}
	eng := New(refs, sys, context.New(context.DefaultConfig()))

	eng.HandleInput(keyref.Press(0))
	tickN(eng, 1)

	events := eng.DrainCallbacks()
	require.Len(t, events, 1)
	assert.Equal(t, uint16(7), events[0].Tag)
	assert.Equal(t, uint16(42), events[0].Payload)

	assert.Empty(t, eng.DrainCallbacks(), "draining must clear the queue")
}

func TestDistinctReportsCollapsesDuplicatesAndIgnoresTransientZeros(t *testing.T) {
	a := NewDistinctReports()
	a.Update([8]byte{0, 0, 4})
	a.Update([8]byte{0, 0, 4})
	a.Update([8]byte{})
	a.Update([8]byte{0, 0, 5})

	b := NewDistinctReports()
	b.Update([8]byte{0, 0, 4})
	b.Update([8]byte{0, 0, 5})

	assert.True(t, a.Equal(b), "a transient all-zero report between two matching reports must not break equality")

	c := NewDistinctReports()
	c.Update([8]byte{0, 0, 6})
	assert.False(t, a.Equal(c))
}

func TestReportOutputIsPureFunctionOfState(t *testing.T) {
	eng := newTestEngine(t)
	eng.HandleInput(keyref.Press(idxA))
	tickN(eng, 1)

	first := eng.ReportOutput()
	second := eng.ReportOutput()
	assert.Equal(t, first, second, "ReportOutput must not mutate engine state")
}
