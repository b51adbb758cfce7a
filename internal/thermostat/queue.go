package thermostat

import (
	"container/heap"
	"sort"
	"time"
)

// commandHeap orders commands by ExecuteAt, ties broken by insertion order.
type commandHeap []ScheduledCommand

func (h commandHeap) Len() int { return len(h) }

func (h commandHeap) Less(i, j int) bool {
	if h[i].ExecuteAt.Equal(h[j].ExecuteAt) {
		return h[i].seq < h[j].seq
	}

	return h[i].ExecuteAt.Before(h[j].ExecuteAt)
}

func (h commandHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *commandHeap) Push(x any) { *h = append(*h, x.(ScheduledCommand)) }

func (h *commandHeap) Pop() any {
	old := *h
	n := len(old)
	cmd := old[n-1]
	*h = old[:n-1]
	return cmd
}

// EventQueue is a min-heap of pending relay commands. Not safe for concurrent
// use, the Thermostat lock guards it.
type EventQueue struct {
	items      commandHeap
	nextSeq    uint64
	generation uint64
}

func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

func (q *EventQueue) Push(cmd ScheduledCommand) {
	q.nextSeq++
	cmd.seq = q.nextSeq
	heap.Push(&q.items, cmd)
}

// requeue puts back a command that was popped but could not be applied, keeping
// its original position in the ordering.
func (q *EventQueue) requeue(cmd ScheduledCommand) {
	heap.Push(&q.items, cmd)
}

// PeekReady returns the head command if it is due at now.
func (q *EventQueue) PeekReady(now time.Time) (ScheduledCommand, bool) {
	if len(q.items) == 0 || q.items[0].ExecuteAt.After(now) {
		return ScheduledCommand{}, false
	}

	return q.items[0], true
}

// PopReady removes and returns the head command if it is due at now.
func (q *EventQueue) PopReady(now time.Time) (ScheduledCommand, bool) {
	cmd, ok := q.PeekReady(now)
	if !ok {
		return cmd, false
	}

	heap.Pop(&q.items)
	return cmd, true
}

// ReplaceAll swaps the whole queue for cmds. Last writer wins, nothing is merged.
func (q *EventQueue) ReplaceAll(cmds []ScheduledCommand) {
	q.items = q.items[:0:0]
	q.generation++
	for _, cmd := range cmds {
		q.Push(cmd)
	}
}

func (q *EventQueue) Clear() {
	q.ReplaceAll(nil)
}

func (q *EventQueue) Len() int {
	return len(q.items)
}

// Generation changes every time the queue is replaced or cleared.
func (q *EventQueue) Generation() uint64 {
	return q.generation
}

// Pending returns a copy of the queued commands in execution order.
func (q *EventQueue) Pending() []ScheduledCommand {
	pending := make([]ScheduledCommand, len(q.items))
	copy(pending, q.items)
	sort.Slice(pending, func(i, j int) bool {
		return commandHeap(pending).Less(i, j)
	})

	return pending
}

// NextFuture returns the earliest command scheduled strictly after now.
func (q *EventQueue) NextFuture(now time.Time) (ScheduledCommand, bool) {
	for _, cmd := range q.Pending() {
		if cmd.ExecuteAt.After(now) {
			return cmd, true
		}
	}

	return ScheduledCommand{}, false
}

// LastReady returns the last command, in execution order, that is due at now.
// It is the state the relay will end up in once the ready commands are dispatched.
func (q *EventQueue) LastReady(now time.Time) (ScheduledCommand, bool) {
	var last ScheduledCommand
	found := false
	for _, cmd := range q.Pending() {
		if cmd.ExecuteAt.After(now) {
			break
		}
		last = cmd
		found = true
	}

	return last, found
}
