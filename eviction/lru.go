// This file implements LRU eviction.

package eviction

import "container/list"

// lru keeps keys in a doubly-linked list ordered by use.
// The front is the most recently used key, the back the least.
type lru struct {
	order *list.List

	// nodes maps keys to their list element so every operation is O(1).
	nodes map[string]*list.Element
}

func newLRU() *lru {
	return &lru{
		order: list.New(),
		nodes: make(map[string]*list.Element),
	}
}

func (l *lru) OnGet(k string) {
	if e, ok := l.nodes[k]; ok {
		l.order.MoveToFront(e)
	}
}

// OnPut treats an overwrite as a use.
func (l *lru) OnPut(k string) {
	if e, ok := l.nodes[k]; ok {
		l.order.MoveToFront(e)
		return
	}
	l.nodes[k] = l.order.PushFront(k)
}

func (l *lru) Evict() string {
	e := l.order.Back()
	if e == nil {
		return ""
	}
	k := l.order.Remove(e).(string)
	delete(l.nodes, k)
	return k
}

func (l *lru) Remove(k string) {
	if e, ok := l.nodes[k]; ok {
		l.order.Remove(e)
		delete(l.nodes, k)
	}
}
