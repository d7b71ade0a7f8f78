// Package scheduler implements the keymap's event scheduler: a bounded,
// allocation-free ordered queue of delayed events plus a FIFO of events
// ready for delivery this tick (spec.md §4.1).
//
// Ported from original_source/src/keymap/event_scheduler.rs: scheduled
// events are kept in a slice sorted by descending deadline, so the next-due
// event always sits at the tail and pops in O(1); insertion is an O(n)
// binary-search-positioned insert, acceptable for the bounded capacity
// here (n <= MaxScheduledEvents).
package scheduler

import (
	"fmt"
	"sort"

	"github.com/merith-tk/smart-keymap/internal/keyref"
)

// MaxPendingEvents is the FIFO capacity for events ready to be dequeued
// this tick (spec.md §3).
const MaxPendingEvents = 32

// MaxScheduledEvents is the capacity of the ordered delayed-event queue
// (spec.md §3).
const MaxScheduledEvents = 32

type scheduledEvent struct {
	deadline uint32
	seq      uint32
	event    keyref.Event
}

// EventScheduler sequences deferred timeouts and a FIFO of pending events,
// per spec.md §4.1.
type EventScheduler struct {
	pendingEvents   []keyref.Event
	scheduledEvents []scheduledEvent
	scheduleCounter uint32
	seqCounter      uint32
}

// New constructs an empty EventScheduler.
func New() *EventScheduler {
	return &EventScheduler{
		pendingEvents:   make([]keyref.Event, 0, MaxPendingEvents),
		scheduledEvents: make([]scheduledEvent, 0, MaxScheduledEvents),
	}
}

// Reset clears all pending and scheduled events and resets the tick counter.
func (s *EventScheduler) Reset() {
	s.pendingEvents = s.pendingEvents[:0]
	s.scheduledEvents = s.scheduledEvents[:0]
	s.scheduleCounter = 0
	s.seqCounter = 0
}

// ScheduleEvent drains a handler-emitted ScheduledEvent into the
// appropriate queue.
func (s *EventScheduler) ScheduleEvent(se keyref.ScheduledEvent) {
	switch se.Schedule {
	case keyref.ScheduleImmediate:
		s.ScheduleImmediate(se.Event)
	case keyref.ScheduleAfter:
		s.ScheduleAfter(se.DelayMS, se.Event)
	}
}

// ScheduleImmediate enqueues an event directly onto the pending FIFO.
func (s *EventScheduler) ScheduleImmediate(event keyref.Event) {
	s.enqueuePending(event)
}

func (s *EventScheduler) enqueuePending(event keyref.Event) {
	if len(s.pendingEvents) >= MaxPendingEvents {
		panic(fmt.Sprintf("scheduler: pending_events capacity exceeded (%d)", MaxPendingEvents))
	}
	s.pendingEvents = append(s.pendingEvents, event)
}

// ScheduleAfter schedules event to fire delayMS milliseconds from now.
// Among events sharing a deadline, insertion order is preserved
// (spec.md §5 ordering guarantees).
func (s *EventScheduler) ScheduleAfter(delayMS uint32, event keyref.Event) {
	if len(s.scheduledEvents) >= MaxScheduledEvents {
		panic(fmt.Sprintf("scheduler: scheduled_events capacity exceeded (%d)", MaxScheduledEvents))
	}
	deadline := s.scheduleCounter + delayMS
	seq := s.seqCounter
	s.seqCounter++

	// scheduledEvents is sorted descending by deadline (smallest at the
	// tail); among equal deadlines, smallest seq (earliest inserted) at
	// the tail too, so it pops first.
	pos := sort.Search(len(s.scheduledEvents), func(i int) bool {
		e := s.scheduledEvents[i]
		if e.deadline != deadline {
			return e.deadline < deadline
		}
		return e.seq < seq
	})
	s.scheduledEvents = append(s.scheduledEvents, scheduledEvent{})
	copy(s.scheduledEvents[pos+1:], s.scheduledEvents[pos:])
	s.scheduledEvents[pos] = scheduledEvent{deadline: deadline, seq: seq, event: event}
}

// CancelFor cancels every scheduled (not yet pending) event whose
// KeymapIndex refers to idx, per spec.md §3's release-cancellation
// invariant.
func (s *EventScheduler) CancelFor(idx keyref.KeymapIndex) {
	kept := s.scheduledEvents[:0]
	for _, e := range s.scheduledEvents {
		if e.event.KeymapIndex != idx {
			kept = append(kept, e)
		}
	}
	s.scheduledEvents = kept
}

// Tick advances the schedule counter by deltaMS and moves the earliest
// now-due scheduled event onto the pending FIFO. At most one event is
// moved per Tick call; any other due events wait for later calls, which
// keeps per-tick work O(1) when callers drive ticks at a fixed cadence.
func (s *EventScheduler) Tick(deltaMS uint32) {
	s.scheduleCounter += deltaMS
	if len(s.scheduledEvents) == 0 {
		return
	}
	last := s.scheduledEvents[len(s.scheduledEvents)-1]
	if last.deadline <= s.scheduleCounter {
		s.scheduledEvents = s.scheduledEvents[:len(s.scheduledEvents)-1]
		s.enqueuePending(last.event)
	}
}

// Dequeue pops the next ready event from the pending FIFO in the order it
// was enqueued.
func (s *EventScheduler) Dequeue() (keyref.Event, bool) {
	if len(s.pendingEvents) == 0 {
		return keyref.Event{}, false
	}
	event := s.pendingEvents[0]
	copy(s.pendingEvents, s.pendingEvents[1:])
	s.pendingEvents = s.pendingEvents[:len(s.pendingEvents)-1]
	return event, true
}

// HasPendingWork reports whether any scheduled or pending event remains,
// for Engine.HasScheduledEvents (spec.md §4.10).
func (s *EventScheduler) HasPendingWork() bool {
	return len(s.pendingEvents) > 0 || len(s.scheduledEvents) > 0
}

// Now returns the current schedule counter; internal/engine uses it as
// its clock.
func (s *EventScheduler) Now() uint32 { return s.scheduleCounter }
