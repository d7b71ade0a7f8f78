// Package engine implements the keymap core (spec.md §4.10): the
// pressed-key table, the tick-delayed input queue, the resolution loop
// that drives internal/dispatch and internal/scheduler, and the per-tick
// output aggregator.
//
// Grounded on the teacher's Merith-TK-nomad ScriptManager lifecycle shape
// (an Init-once, Tick-driven struct with bounded background bookkeeping)
// for the Engine struct's field layout, and on
// original_source/src/keymap/mod.rs for the resolution algorithm itself.
package engine

import (
	"fmt"

	"github.com/merith-tk/smart-keymap/internal/context"
	"github.com/merith-tk/smart-keymap/internal/dispatch"
	"github.com/merith-tk/smart-keymap/internal/keyref"
	"github.com/merith-tk/smart-keymap/internal/keyref/system"
	"github.com/merith-tk/smart-keymap/internal/scheduler"
)

// InputQueueTickDelay is the fixed delay (in ticks) a freshly handled
// input event sits in the queue before being processed, so that
// simultaneously-arriving events are resolved in a deterministic order
// (spec.md §4.10).
const InputQueueTickDelay = 1

// MaxInputQueueEvents bounds the input queue's capacity (spec.md §5).
const MaxInputQueueEvents = 32

// MaxPressedKeys bounds the pressed-key table's capacity (spec.md §5).
const MaxPressedKeys = 32

type queuedInput struct {
	event          keyref.InputEvent
	ticksRemaining uint32
}

// pressedSlot is one entry in the pressed-key table.
type pressedSlot struct {
	idx keyref.KeymapIndex
	ref keyref.Ref

	isPending bool
	pending   dispatch.PendingKeyState
	resolved  dispatch.KeyState

	// released marks that idx's own physical key has released; most kinds
	// are pruned from the table as soon as this is true.
	released bool

	// consumesLatched lists latched one-shot-modifier slots (Sticky or
	// LayerSticky) this slot will carry to the grave: when this slot is
	// pruned (on its own release), they are pruned too. Set once, at
	// creation, from Engine.awaitingConsumption (spec.md §4.8).
	consumesLatched []*pressedSlot

	// chordReleased tracks, for a resolved chord slot, which of the
	// chord's member physical keys have released; the slot survives until
	// every member has (spec.md §4.6).
	chordReleased map[keyref.KeymapIndex]bool

	// physicallyReleased marks that idx's own physical key released while
	// this slot was still pending (tap-dance's inter-tap gaps are the
	// common case: the key goes up well before the timeout that resolves
	// it). A nested-branch resolution reached with this already set
	// activates its branch as a one-tick virtual press rather than a
	// normal held key (see virtualRelease below).
	physicallyReleased bool
}

// virtualRelease schedules a resolved nested-branch slot for removal after
// exactly one Tick, so its output is visible for one ReportOutput call and
// then gone — mirroring original_source/src/key/tap_hold.rs resolving a
// completed tap as a synthesized press-then-release pair rather than a key
// that stays down until some future physical release (spec.md §4.5, §4.7).
type virtualRelease struct {
	slot           *pressedSlot
	ticksRemaining uint32
}

// Engine is the keymap core (spec.md §4.10).
type Engine struct {
	sys  *system.System
	ctx  *context.Context
	refs []keyref.Ref

	sched *scheduler.EventScheduler
	slots []*pressedSlot

	inputQueue []queuedInput
	msPerTick  uint32

	// awaitingConsumption holds latched Sticky/LayerSticky slots that have
	// released with no interruption and are waiting for the next key's
	// full press-then-release to consume them.
	awaitingConsumption []*pressedSlot

	// virtualReleases holds nested-branch slots mid-way through their
	// one-tick virtual visibility window (see virtualRelease).
	virtualReleases []virtualRelease

	// callbacks queues every EventKeymapCallback emitted since the last
	// DrainCallbacks call, for a host-side callback dispatcher to consume
	// (spec.md §4.3: "the outer keymap records [it]... without affecting
	// HID output").
	callbacks []CallbackEvent
}

// CallbackEvent is a (tag, payload) pair emitted by a Callback key's press,
// queued for whatever host embeds the Engine to act on (spec.md §4.3).
type CallbackEvent struct {
	KeymapIndex keyref.KeymapIndex
	Tag         uint16
	Payload     uint16
}

// DrainCallbacks returns and clears every CallbackEvent queued since the
// last call. The engine itself never interprets a callback's tag/payload;
// it only records the emission, matching spec.md §4.3's "without affecting
// HID output".
func (e *Engine) DrainCallbacks() []CallbackEvent {
	if len(e.callbacks) == 0 {
		return nil
	}
	out := e.callbacks
	e.callbacks = nil
	return out
}

// New constructs an Engine over a static key-reference array, a populated
// key-system registry, and an initial Context built from compile-time
// configuration (spec.md §6's constructor contract).
func New(refs []keyref.Ref, sys *system.System, ctx *context.Context) *Engine {
	return &Engine{
		refs:      refs,
		sys:       sys,
		ctx:       ctx,
		sched:     scheduler.New(),
		msPerTick: 1,
	}
}

// SetMSPerTick scales how many milliseconds each Tick call advances the
// scheduler by (spec.md §4.10).
func (e *Engine) SetMSPerTick(n uint32) { e.msPerTick = n }

// HandleInput enqueues a physical press/release with the fixed tick delay
// (spec.md §4.10).
func (e *Engine) HandleInput(ev keyref.InputEvent) {
	if len(e.inputQueue) >= MaxInputQueueEvents {
		panic(fmt.Sprintf("engine: input_queue capacity exceeded (%d)", MaxInputQueueEvents))
	}
	e.inputQueue = append(e.inputQueue, queuedInput{event: ev, ticksRemaining: InputQueueTickDelay})
}

// HasScheduledEvents reports whether any pending or scheduled work
// remains (spec.md §4.10).
func (e *Engine) HasScheduledEvents() bool {
	return e.sched.HasPendingWork() || len(e.inputQueue) > 0
}

// Tick decrements input-queue delays, pops ready inputs and drives their
// resolution, then advances the scheduler and drains its newly-ready
// events into resolution too (spec.md §4.10).
func (e *Engine) Tick() {
	e.expireVirtualReleases()

	for i := range e.inputQueue {
		if e.inputQueue[i].ticksRemaining > 0 {
			e.inputQueue[i].ticksRemaining--
		}
	}
	var ready []keyref.InputEvent
	kept := e.inputQueue[:0]
	for _, qi := range e.inputQueue {
		if qi.ticksRemaining == 0 {
			ready = append(ready, qi.event)
		} else {
			kept = append(kept, qi)
		}
	}
	e.inputQueue = kept

	for _, in := range ready {
		e.consumeEvent(keyref.FromInput(in))
	}

	e.sched.Tick(e.msPerTick)
	for {
		ev, ok := e.sched.Dequeue()
		if !ok {
			break
		}
		e.consumeEvent(ev)
	}
}

// consumeEvent implements the resolution loop in spec.md §4.10: route to
// pending slots first, then to resolved slots, then (for an unclaimed
// press) create a new slot.
func (e *Engine) consumeEvent(ev keyref.Event) {
	now := e.sched.Now()

	if ev.Kind == keyref.EventKeymapCallback {
		e.callbacks = append(e.callbacks, CallbackEvent{
			KeymapIndex: ev.KeymapIndex,
			Tag:         ev.CallbackTag,
			Payload:     ev.CallbackPayload,
		})
	}

	// Step 1: route to every pending slot. justResolved tracks slots that
	// transitioned to resolved on this exact event, so Step 2 below does
	// not also replay ev into them — the replay loop here already did.
	justResolved := make(map[*pressedSlot]bool)
	for _, s := range e.slots {
		if !s.isPending {
			continue
		}
		if ev.Kind == keyref.EventInputRelease && ev.KeymapIndex == s.idx {
			s.physicallyReleased = true
		}
		resolvedState, replay, scheduled := dispatch.UpdatePending(e.sys, e.ctx, now, s.idx, s.ref, &s.pending, ev)
		for _, se := range scheduled {
			e.sched.ScheduleEvent(se)
		}
		if resolvedState == nil {
			continue
		}
		justResolved[s] = true
		s.isPending = false
		s.resolved = *resolvedState
		if members, ok := dispatch.ResolvedChordMembers(s.resolved); ok {
			s.chordReleased = make(map[keyref.KeymapIndex]bool, len(members))
			for _, m := range members {
				s.chordReleased[m] = ev.Kind == keyref.EventInputRelease && ev.KeymapIndex == m
			}
		}
		for _, r := range replay {
			more := dispatch.UpdateState(e.sys, e.ctx, now, s.idx, s.ref, &s.resolved, r)
			for _, se := range more {
				e.sched.ScheduleEvent(se)
			}
		}
		if s.resolved.Latched {
			e.awaitingConsumption = append(e.awaitingConsumption, s)
		} else if s.resolved.Nested != nil && s.physicallyReleased {
			// The branch this slot just activated belongs to a key whose
			// own physical press is already over (a completed tap, or a
			// tap-dance window that timed out after its last release): show
			// it for one more tick, then remove it, instead of leaving it
			// held with nothing left to ever release it.
			e.virtualReleases = append(e.virtualReleases, virtualRelease{slot: s, ticksRemaining: 1})
		}
	}

	// A release cancels any scheduled events tied to its own index, but
	// only once that index's slot is no longer pending on it: tap-dance and
	// chorded windows deliberately keep their timeout alive across the
	// physical release that starts (or continues) their recognition window
	// (spec.md §4.6, §4.7); tap-hold's own timeout, by contrast, is stale
	// the moment its release resolves it and must not be left to fire late.
	// Caps-word's idle timeout is keyed on the toggle key's own index but
	// outlives its tap, so it is exempt from this release-triggered cancel.
	if ev.Kind == keyref.EventInputRelease {
		if s := e.slotAt(ev.KeymapIndex); s == nil || !s.isPending {
			if s == nil || s.ref.Kind != keyref.KindCapsWordToggle {
				e.sched.CancelFor(ev.KeymapIndex)
			}
		}
	}

	// Step 2: route to already-resolved slots (release/interrupt bookkeeping).
	if e.ctx.CapsWordActive && ev.Kind == keyref.EventInputPress && dispatch.IsCapsWordTerminator(e.ctx, e.refAt(ev.KeymapIndex)) {
		e.ctx.CapsWordActive = false
	}
	if ev.Kind == keyref.EventCapsWordIdleTimeout {
		e.ctx.CapsWordActive = false
	}

	for _, s := range e.slots {
		if s.isPending || justResolved[s] {
			continue
		}
		if s.chordReleased != nil {
			if ev.Kind == keyref.EventInputRelease {
				if _, isMember := s.chordReleased[ev.KeymapIndex]; isMember {
					s.chordReleased[ev.KeymapIndex] = true
				}
			}
			continue
		}
		if s.idx != ev.KeymapIndex {
			continue
		}
		more := dispatch.UpdateState(e.sys, e.ctx, now, s.idx, s.ref, &s.resolved, ev)
		for _, se := range more {
			e.sched.ScheduleEvent(se)
		}
		if ev.IsReleaseOf(s.idx) {
			s.released = true
			if isKeyboardKindRef(s.ref) {
				e.ctx.NoteKeyboardKeyRelease(now)
			}
		}
	}

	// Step 3: an unclaimed press creates a new slot.
	if ev.Kind == keyref.EventInputPress && !e.hasSlot(ev.KeymapIndex) && !e.isClaimedChordMember(ev.KeymapIndex) {
		e.pressNewSlot(now, ev.KeymapIndex)
	}

	e.prune()
}

// expireVirtualReleases removes slots whose one-tick virtual visibility
// window (see virtualRelease) has elapsed; called at the start of Tick, so
// the previous Tick's ReportOutput call still observed them.
func (e *Engine) expireVirtualReleases() {
	if len(e.virtualReleases) == 0 {
		return
	}
	var fire []*pressedSlot
	kept := e.virtualReleases[:0]
	for _, vr := range e.virtualReleases {
		if vr.ticksRemaining > 0 {
			vr.ticksRemaining--
		}
		if vr.ticksRemaining == 0 {
			fire = append(fire, vr.slot)
		} else {
			kept = append(kept, vr)
		}
	}
	e.virtualReleases = kept
	if len(fire) == 0 {
		return
	}
	remove := make(map[*pressedSlot]bool, len(fire))
	for _, s := range fire {
		remove[s] = true
	}
	kept2 := e.slots[:0]
	for _, s := range e.slots {
		if !remove[s] {
			kept2 = append(kept2, s)
		}
	}
	e.slots = kept2
}

func (e *Engine) slotAt(idx keyref.KeymapIndex) *pressedSlot {
	for _, s := range e.slots {
		if s.idx == idx {
			return s
		}
	}
	return nil
}

func (e *Engine) pressNewSlot(now uint32, idx keyref.KeymapIndex) {
	ref := e.refAt(idx)
	result, scheduled := dispatch.NewPressedKey(e.sys, e.ctx, now, idx, ref)
	for _, se := range scheduled {
		e.sched.ScheduleEvent(se)
	}
	if len(e.slots) >= MaxPressedKeys {
		panic(fmt.Sprintf("engine: pressed_keys capacity exceeded (%d)", MaxPressedKeys))
	}
	slot := &pressedSlot{idx: idx, ref: ref}
	if result.IsPending {
		slot.isPending = true
		slot.pending = result.Pending
	} else {
		slot.resolved = result.Resolved
		if members, ok := dispatch.ResolvedChordMembers(slot.resolved); ok {
			slot.chordReleased = make(map[keyref.KeymapIndex]bool, len(members))
			for _, m := range members {
				slot.chordReleased[m] = false
			}
		}
	}
	if len(e.awaitingConsumption) > 0 && ref.Kind != keyref.KindSticky && ref.Kind != keyref.KindLayerSticky {
		slot.consumesLatched = e.awaitingConsumption
		e.awaitingConsumption = nil
	}
	e.slots = append(e.slots, slot)
}

// prune removes every slot that has finished contributing: the chosen
// moment differs per kind (spec.md §4.4, §4.6, §4.8), so each slot reports
// its own "done" condition via slotDone rather than the engine
// special-casing kinds directly. A done slot also drags down any latched
// one-shot modifier slots it was carrying (spec.md §4.8's "unlatches on
// that key's release").
func (e *Engine) prune() {
	remove := make(map[*pressedSlot]bool)
	for _, s := range e.slots {
		if !s.isPending && s.slotDone() {
			remove[s] = true
			for _, consumed := range s.consumesLatched {
				remove[consumed] = true
				if consumed.ref.Kind == keyref.KindLayerSticky {
					e.ctx.ConsumeStickyLayer()
				}
			}
		}
	}
	if len(remove) == 0 {
		return
	}
	kept := e.slots[:0]
	for _, s := range e.slots {
		if !remove[s] {
			kept = append(kept, s)
		}
	}
	e.slots = kept
}

// slotDone reports whether a resolved slot has finished contributing and
// should be removed from the pressed-key table.
func (s *pressedSlot) slotDone() bool {
	if s.resolved.Chorded != nil {
		for _, released := range s.chordReleased {
			if !released {
				return false
			}
		}
		return true
	}
	if s.resolved.Latched {
		return false // pruned only via consumesLatched, see Engine.prune
	}
	return s.released
}

func (e *Engine) hasSlot(idx keyref.KeymapIndex) bool {
	return e.slotAt(idx) != nil
}

func (e *Engine) isClaimedChordMember(idx keyref.KeymapIndex) bool {
	for _, s := range e.slots {
		if s.isPending && dispatch.IsPendingChordMember(&s.pending, idx) {
			return true
		}
	}
	return false
}

func (e *Engine) refAt(idx keyref.KeymapIndex) keyref.Ref {
	if int(idx) >= len(e.refs) {
		panic(fmt.Sprintf("engine: invalid keymap index %d", idx))
	}
	return e.refs[idx]
}

func isKeyboardKindRef(ref keyref.Ref) bool {
	return ref.Kind == keyref.KindKeyboardKeyCode || ref.Kind == keyref.KindKeyboardKeyCodeAndModifier
}

// ReportOutput walks the pressed-key table in press order and merges each
// slot's KeyOutput into a ReportOutput (spec.md §4.10, §6). It is a pure
// function of the current pressed-key states and context (spec.md §8).
func (e *Engine) ReportOutput() keyref.ReportOutput {
	var report keyref.ReportOutput
	for _, s := range e.slots {
		if s.isPending {
			continue
		}
		out, ok := dispatch.KeyOutput(e.sys, e.ctx, s.ref, s.resolved)
		if ok {
			report.Add(out)
		}
	}
	return report
}
