package service

import (
	"container/heap"

	"termguess/internal/domain"
)

type waitingEntry struct {
	domain.MatchmakingEntry
	seq   uint64
	index int
}

// entryHeap orders entries by priority, highest first, then by the order
// they were queued.
type entryHeap []*waitingEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*waitingEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// waitingSet is the scheduler's queue of players waiting for a partner,
// addressable by player id so entries can be changed in place.
type waitingSet struct {
	heap     entryHeap
	byPlayer map[string]*waitingEntry
	nextSeq  uint64
}

func newWaitingSet() *waitingSet {
	return &waitingSet{byPlayer: make(map[string]*waitingEntry)}
}

func (w *waitingSet) Len() int { return w.heap.Len() }

// Join queues the player at priority zero. A player already waiting keeps
// one entry, moved to the back with the new connection.
func (w *waitingSet) Join(playerID, connID string) {
	if e, ok := w.byPlayer[playerID]; ok {
		e.ConnectionID = connID
		e.Priority = 0
		e.seq = w.next()
		heap.Fix(&w.heap, e.index)
		return
	}
	w.push(&waitingEntry{
		MatchmakingEntry: domain.MatchmakingEntry{PlayerID: playerID, ConnectionID: connID},
		seq:              w.next(),
	})
}

func (w *waitingSet) Remove(playerID string) bool {
	e, ok := w.byPlayer[playerID]
	if !ok {
		return false
	}
	heap.Remove(&w.heap, e.index)
	delete(w.byPlayer, playerID)
	return true
}

// Pop takes the entry at the front of the queue.
func (w *waitingSet) Pop() (*waitingEntry, bool) {
	if w.heap.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(&w.heap).(*waitingEntry)
	delete(w.byPlayer, e.PlayerID)
	return e, true
}

// Restore puts a popped entry back exactly where it was.
func (w *waitingSet) Restore(e *waitingEntry) {
	if _, ok := w.byPlayer[e.PlayerID]; ok {
		return
	}
	w.push(e)
}

// Back returns the entry furthest from the front: the lowest priority and,
// among equals, the most recently queued.
func (w *waitingSet) Back() (*waitingEntry, bool) {
	var back *waitingEntry
	for _, e := range w.heap {
		if back == nil || e.Priority < back.Priority || (e.Priority == back.Priority && e.seq > back.seq) {
			back = e
		}
	}
	return back, back != nil
}

func (w *waitingSet) Promote(e *waitingEntry) {
	e.Priority++
	heap.Fix(&w.heap, e.index)
}

func (w *waitingSet) Get(playerID string) (domain.MatchmakingEntry, bool) {
	e, ok := w.byPlayer[playerID]
	if !ok {
		return domain.MatchmakingEntry{}, false
	}
	return e.MatchmakingEntry, true
}

func (w *waitingSet) push(e *waitingEntry) {
	heap.Push(&w.heap, e)
	w.byPlayer[e.PlayerID] = e
}

func (w *waitingSet) next() uint64 {
	w.nextSeq++
	return w.nextSeq
}
