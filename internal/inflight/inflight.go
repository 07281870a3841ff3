// Package inflight remembers which command buffers each queue submission
// carried, so they can leave the Pending state once the device reports the
// submission finished.
package inflight

import "sync"

// Retirer is told that one submission of generation gen has finished.
type Retirer interface {
	Retire(gen uint64)
}

type Buffer struct {
	Retirer    Retirer
	Generation uint64
}

// Point is a timeline semaphore value signalled when the submission ends.
type Point struct {
	Semaphore any
	Value     uint64
}

type Submission struct {
	Queue   any
	Fence   any
	Signals []Point
	Buffers []Buffer

	seq uint64
}

// Tracker is safe for concurrent use. A fence or timeline value that
// retires a submission also retires every earlier submission on the same
// queue.
type Tracker struct {
	mu      sync.Mutex
	pending []*Submission
	next    map[any]uint64
}

// Add records s in submission order. Submissions with nothing to retire
// and nothing that could signal are dropped.
func (t *Tracker) Add(s Submission) {
	if len(s.Buffers) == 0 && s.Fence == nil && len(s.Signals) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.next == nil {
		t.next = make(map[any]uint64)
	}
	t.next[s.Queue]++
	s.seq = t.next[s.Queue]
	t.pending = append(t.pending, &s)
}

// Pending is the number of submissions not yet retired.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// RetireFence retires every submission that signals fence, along with the
// submissions queued before it.
func (t *Tracker) RetireFence(fence any) int {
	if fence == nil {
		return 0
	}
	return t.retireOrdered(func(s *Submission) bool { return s.Fence == fence })
}

// RetireTimeline retires every submission that signals semaphore with a
// value at or below reached, along with the submissions queued before it.
func (t *Tracker) RetireTimeline(semaphore any, reached uint64) int {
	return t.retireOrdered(func(s *Submission) bool {
		for _, p := range s.Signals {
			if p.Semaphore == semaphore && p.Value <= reached {
				return true
			}
		}
		return false
	})
}

// RetireQueue retires everything submitted to queue.
func (t *Tracker) RetireQueue(queue any) int {
	return t.retire(func(s *Submission) bool { return s.Queue == queue })
}

func (t *Tracker) RetireAll() int {
	return t.retire(func(*Submission) bool { return true })
}

// retireOrdered extends signalled to every submission on the same queue
// with a lower sequence than the latest signalled one.
func (t *Tracker) retireOrdered(signalled func(*Submission) bool) int {
	t.mu.Lock()
	latest := make(map[any]uint64)
	for _, s := range t.pending {
		if signalled(s) && s.seq > latest[s.Queue] {
			latest[s.Queue] = s.seq
		}
	}
	t.mu.Unlock()
	if len(latest) == 0 {
		return 0
	}
	return t.retire(func(s *Submission) bool {
		seq, ok := latest[s.Queue]
		return ok && s.seq <= seq
	})
}

func (t *Tracker) retire(done func(*Submission) bool) int {
	t.mu.Lock()
	var finished []*Submission
	kept := t.pending[:0]
	for _, s := range t.pending {
		if done(s) {
			finished = append(finished, s)
		} else {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(t.pending); i++ {
		t.pending[i] = nil
	}
	t.pending = kept
	t.mu.Unlock()

	for _, s := range finished {
		for _, b := range s.Buffers {
			b.Retirer.Retire(b.Generation)
		}
	}
	return len(finished)
}
