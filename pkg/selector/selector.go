// Package selector implements the Input Selector component (SPEC_FULL.md
// §4.F): picks the next input by priority-queue hint or uniform random,
// and loads its bytes.
package selector

import (
	"math/rand/v2"

	"crowdfuzz/pkg/corpus"
)

// PriorityQueue is the ordered sequence of input-list indices produced by
// feedback plugins to bias selection; consumed front-to-back.
type PriorityQueue struct {
	indices []int
}

// Push appends idx to the back of the queue.
func (q *PriorityQueue) Push(idx int) { q.indices = append(q.indices, idx) }

// PopFront removes and returns the front index. ok is false if empty.
func (q *PriorityQueue) PopFront() (idx int, ok bool) {
	if len(q.indices) == 0 {
		return 0, false
	}

	idx = q.indices[0]
	q.indices = q.indices[1:]

	return idx, true
}

// Len reports the number of queued indices.
func (q *PriorityQueue) Len() int { return len(q.indices) }

// Selector owns the current input index and its loaded bytes.
type Selector struct {
	list     *corpus.List
	priority *PriorityQueue
	idx      int
	input    []byte
}

// New returns a Selector over list, consuming priority hints from pq.
func New(list *corpus.List, pq *PriorityQueue) *Selector {
	if pq == nil {
		pq = &PriorityQueue{}
	}

	return &Selector{list: list, priority: pq}
}

// Select picks the next input index: pop-front from the priority queue if
// non-empty, else uniform random over [0, list.Len()), then loads its
// bytes via load.
func (s *Selector) Select(load func(*corpus.Descriptor) ([]byte, error)) error {
	idx, ok := s.priority.PopFront()
	if !ok {
		idx = rand.N(s.list.Len())
	}

	d := s.list.At(idx)

	data, err := load(d)
	if err != nil {
		return err
	}

	s.idx = idx
	s.input = data

	return nil
}

// Index returns the index selected by the most recent Select call.
func (s *Selector) Index() int { return s.idx }

// Input returns the mutable byte buffer for the most recently selected
// input. The mutator operates on this buffer in place.
func (s *Selector) Input() []byte { return s.input }

// SetInput replaces the current input buffer (used by the mutator after
// producing a mutated copy that should become the new working buffer).
func (s *Selector) SetInput(b []byte) { s.input = b }

// Priority exposes the priority queue so feedback plugins can push hints.
func (s *Selector) Priority() *PriorityQueue { return s.priority }
