package crawler

import (
	"github.com/IliaW/autocomplete-crawler/internal/model"
)

// Frontier is an insertion-ordered set of pending terms. Pop is FIFO; Push of a term that is
// already pending is a no-op, so a term is never queued twice.
type Frontier struct {
	queue   []model.SearchTerm
	head    int
	members map[model.SearchTerm]struct{}
}

func NewFrontier(seeds ...model.SearchTerm) *Frontier {
	f := &Frontier{members: make(map[model.SearchTerm]struct{}, len(seeds))}
	for _, s := range seeds {
		f.Push(s)
	}
	return f
}

// Push returns false if the term is already pending.
func (f *Frontier) Push(term model.SearchTerm) bool {
	if _, ok := f.members[term]; ok {
		return false
	}
	f.members[term] = struct{}{}
	f.queue = append(f.queue, term)
	return true
}

// Pop returns false if the frontier is empty.
func (f *Frontier) Pop() (model.SearchTerm, bool) {
	if f.head >= len(f.queue) {
		return "", false
	}
	term := f.queue[f.head]
	f.queue[f.head] = ""
	f.head++
	switch {
	case f.head == len(f.queue):
		f.queue = f.queue[:0]
		f.head = 0
	case f.head > len(f.queue)/2:
		// drop the popped prefix once it outweighs the pending tail
		n := copy(f.queue, f.queue[f.head:])
		clear(f.queue[n:])
		f.queue = f.queue[:n]
		f.head = 0
	}
	delete(f.members, term)
	return term, true
}

func (f *Frontier) Len() int {
	return len(f.members)
}

func (f *Frontier) contains(term model.SearchTerm) bool {
	_, ok := f.members[term]
	return ok
}
