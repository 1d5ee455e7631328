package netsim

// eventqueue.go implements the simulator's event scheduler: a min-heap of
// timestamped actions, ordered by (scheduled time, insertion sequence).
// The heap machinery follows the same Len/Less/Swap/Push/Pop shape
// scheduler.go applies to its per-core task scheduler (reqSrvHeap) --
// here it is promoted from a core-allocation helper to the engine's own
// top-level clock-and-queue.

import "container/heap"

// EventAction is the function invoked when an Event is popped and
// performed. It receives the EventQueue so that it may itself schedule
// further events; that's the entire "concurrency model" of this engine.
type EventAction func(eq *EventQueue)

// Event is a single scheduled action. insertionSeq breaks ties between
// events that share the same scheduled time, and cancelled lets
// EventQueue.Cancel retire an event without disturbing heap structure.
type Event struct {
	time         VTime
	insertionSeq int64
	cancelled    bool
	action       EventAction
}

// EventHandle is an opaque reference to a scheduled Event, returned by
// Schedule/ScheduleAt and accepted by Cancel.
type EventHandle struct {
	ev *Event
}

// Cancel marks the referenced event as cancelled. The entry is left in the
// heap -- it is silently skipped when popped -- because removing an
// arbitrary interior node from a slice-backed binary heap is needless
// bookkeeping for a flag check at pop time.
func (h EventHandle) Cancel() {
	if h.ev != nil {
		h.ev.cancelled = true
	}
}

// eventHeap is the container/heap.Interface implementation, ordered by
// (time, insertionSeq).
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].time.Seconds != h[j].time.Seconds {
		return h[i].time.Seconds < h[j].time.Seconds
	}
	return h[i].insertionSeq < h[j].insertionSeq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// EventQueue is the min-heap of scheduled events plus the Clock it
// advances as events are popped. It is the sole source of concurrency in
// the simulator: every component reaches the future only by scheduling an
// event here.
type EventQueue struct {
	clock   *Clock
	heap    eventHeap
	nextSeq int64
}

// NewEventQueue constructs an empty queue bound to the given Clock.
func NewEventQueue(clock *Clock) *EventQueue {
	eq := &EventQueue{clock: clock, heap: make(eventHeap, 0)}
	heap.Init(&eq.heap)
	return eq
}

// Clock returns the Clock this queue advances.
func (eq *EventQueue) Clock() *Clock {
	return eq.clock
}

// Now is a convenience accessor for eq.Clock().NowSeconds().
func (eq *EventQueue) Now() float64 {
	return eq.clock.NowSeconds()
}

// Schedule inserts action at now+delay. delay must be non-negative.
func (eq *EventQueue) Schedule(delay float64, action EventAction) (EventHandle, error) {
	if delay < 0 {
		return EventHandle{}, newScheduleErr("negative delay %g", delay)
	}
	return eq.scheduleAtSeconds(eq.clock.NowSeconds()+delay, action)
}

// ScheduleAt inserts action at the given absolute time, which must not
// precede the current clock.
func (eq *EventQueue) ScheduleAt(at float64, action EventAction) (EventHandle, error) {
	if at < eq.clock.NowSeconds() {
		return EventHandle{}, newScheduleErr("absolute time %g precedes now %g", at, eq.clock.NowSeconds())
	}
	return eq.scheduleAtSeconds(at, action)
}

func (eq *EventQueue) scheduleAtSeconds(at float64, action EventAction) (EventHandle, error) {
	eq.nextSeq++
	ev := &Event{
		time:         VTime{Seconds: at, Pri: eq.nextSeq},
		insertionSeq: eq.nextSeq,
		action:       action,
	}
	heap.Push(&eq.heap, ev)
	return EventHandle{ev: ev}, nil
}

// PopNext removes and returns the next live event, discarding any
// cancelled entries it encounters along the way. Returns (nil, false) once
// the heap is exhausted.
func (eq *EventQueue) PopNext() (*Event, bool) {
	for eq.heap.Len() > 0 {
		ev := heap.Pop(&eq.heap).(*Event)
		if ev.cancelled {
			continue
		}
		return ev, true
	}
	return nil, false
}

// Empty reports whether the queue holds no further live events. It must
// actually pop entries to answer correctly, since a non-empty heap may
// hold only cancelled events: cancelled entries it pops are discarded, and
// the first live entry it finds is pushed back.
func (eq *EventQueue) Empty() bool {
	var drained []*Event
	empty := true
	for eq.heap.Len() > 0 {
		ev := heap.Pop(&eq.heap).(*Event)
		if !ev.cancelled {
			drained = append(drained, ev)
			empty = false
			break
		}
	}
	for _, ev := range drained {
		heap.Push(&eq.heap, ev)
	}
	return empty
}

// Run drives the event loop: pop, advance the clock, invoke, repeat, until
// the queue is exhausted or until stop() reports true. This is the
// mechanical half of the Simulation loop in simulation.go; Simulation adds
// the flow-completion termination condition on top.
func (eq *EventQueue) Run(stop func() bool) {
	for {
		if stop != nil && stop() {
			return
		}
		ev, ok := eq.PopNext()
		if !ok {
			return
		}
		eq.clock.advance(ev.time)
		ev.action(eq)
	}
}
