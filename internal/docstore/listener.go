package docstore

import (
	"sort"
	"sync"
)

type listener struct {
	mu       sync.Mutex
	closed   bool
	seq      uint64
	pred     Predicate
	onChange func([]Document)
}

// deliver hands docs to onChange unless a snapshot taken at seq or later was
// already delivered. It must not be re-entered from onChange for the same
// listener.
func (l *listener) deliver(seq uint64, docs []Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || seq <= l.seq {
		return
	}
	l.seq = seq
	l.onChange(filter(docs, l.pred))
}

func (l *listener) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

type listenerSet struct {
	mu     sync.Mutex
	nextID int
	byColl map[string]map[int]*listener
}

func newListenerSet() *listenerSet {
	return &listenerSet{byColl: make(map[string]map[int]*listener)}
}

func (s *listenerSet) add(collection string, l *listener) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	set, ok := s.byColl[collection]
	if !ok {
		set = make(map[int]*listener)
		s.byColl[collection] = set
	}
	set[s.nextID] = l
	return s.nextID, !ok
}

// remove reports whether the collection has no listeners left.
func (s *listenerSet) remove(collection string, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.byColl[collection]
	delete(set, id)
	if len(set) == 0 {
		delete(s.byColl, collection)
		return true
	}
	return false
}

func (s *listenerSet) of(collection string) []*listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*listener, 0, len(s.byColl[collection]))
	for _, l := range s.byColl[collection] {
		out = append(out, l)
	}
	return out
}

func sortByID(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

func cloneData(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
