package queue

import (
	"container/heap"
	"time"
)

// delayedTask is one scheduled retry, keyed by due time
type delayedTask struct {
	jobID string
	due   time.Time
}

// delayQueue is a min-heap of retries ordered by due time. It replaces
// opaque fire-and-forget timers so pending retries are inspectable: the
// dispatcher pops due tasks each tick and verifies the job is still
// retrying before re-enqueueing it.
//
// Not safe for concurrent use; the queue's mutex guards it.
type delayQueue struct {
	tasks delayHeap
}

func newDelayQueue() *delayQueue {
	dq := &delayQueue{}
	heap.Init(&dq.tasks)
	return dq
}

// Schedule adds a task due at the given time
func (dq *delayQueue) Schedule(jobID string, due time.Time) {
	heap.Push(&dq.tasks, delayedTask{jobID: jobID, due: due})
}

// Due pops and returns every task whose due time is at or before now
func (dq *delayQueue) Due(now time.Time) []string {
	var due []string
	for dq.tasks.Len() > 0 && !dq.tasks[0].due.After(now) {
		task := heap.Pop(&dq.tasks).(delayedTask)
		due = append(due, task.jobID)
	}
	return due
}

// Peek returns the next due time, or zero when empty
func (dq *delayQueue) Peek() time.Time {
	if dq.tasks.Len() == 0 {
		return time.Time{}
	}
	return dq.tasks[0].due
}

// Len returns the number of pending tasks
func (dq *delayQueue) Len() int {
	return dq.tasks.Len()
}

type delayHeap []delayedTask

func (h delayHeap) Len() int           { return len(h) }
func (h delayHeap) Less(i, j int) bool { return h[i].due.Before(h[j].due) }
func (h delayHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *delayHeap) Push(x interface{}) {
	*h = append(*h, x.(delayedTask))
}

func (h *delayHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	*h = old[:n-1]
	return task
}
