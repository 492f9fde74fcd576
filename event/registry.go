package event

import (
	"github.com/saylorsolutions/eventsys/structures/set"
	"github.com/saylorsolutions/eventsys/syncx"
	"reflect"
	"slices"
	"sort"
	"sync"
)

// registry maps event types to listeners in delivery order.
//
// Slices stored in byType are never modified in place. Writers install a new slice, so a snapshot taken by a reader stays valid without holding the lock.
type registry struct {
	mux     sync.RWMutex
	byType  map[reflect.Type][]*Listener
	present set.Set[*Listener]
	byKey   map[methodKey]*Listener
	byOwner map[any]set.Set[*Listener]
	ownerOf map[*Listener]any
}

func newRegistry() *registry {
	return &registry{
		byType:  map[reflect.Type][]*Listener{},
		present: set.New[*Listener](),
		byKey:   map[methodKey]*Listener{},
		byOwner: map[any]set.Set[*Listener]{},
		ownerOf: map[*Listener]any{},
	}
}

// add inserts l after every listener with the same or higher priority, which keeps ties in registration order.
// The listener is indexed under its own owner, or under fallbackOwner if it has none.
// Listeners are shared handles, so the owner is tracked here rather than written to l.
func (r *registry) add(l *Listener, fallbackOwner any) bool {
	return syncx.LockFuncT(&r.mux, func() bool {
		if r.present.Has(l) {
			return false
		}
		ownerID := l.ownerID
		if ownerID == nil {
			ownerID = fallbackOwner
		}
		var key methodKey
		if len(l.method) > 0 {
			key = methodKey{owner: l.ownerID, method: l.method}
			if _, ok := r.byKey[key]; ok {
				return false
			}
			r.byKey[key] = l
		}
		current := r.byType[l.eventType]
		idx := sort.Search(len(current), func(i int) bool {
			return current[i].priority < l.priority
		})
		r.byType[l.eventType] = slices.Insert(slices.Clip(current), idx, l)
		r.present.Add(l)
		if ownerID != nil {
			r.byOwner[ownerID] = r.byOwner[ownerID].Add(l)
			r.ownerOf[l] = ownerID
		}
		return true
	})
}

func (r *registry) remove(l *Listener) bool {
	return syncx.LockFuncT(&r.mux, func() bool {
		return r.removeLocked(l)
	})
}

func (r *registry) removeLocked(l *Listener) bool {
	if !r.present.Has(l) {
		return false
	}
	r.present.Remove(l)
	if len(l.method) > 0 {
		delete(r.byKey, methodKey{owner: l.ownerID, method: l.method})
	}
	if ownerID, ok := r.ownerOf[l]; ok {
		delete(r.ownerOf, l)
		owned := r.byOwner[ownerID].Remove(l)
		if owned.Len() == 0 {
			delete(r.byOwner, ownerID)
		}
	}
	current := r.byType[l.eventType]
	next := slices.DeleteFunc(slices.Clone(current), func(other *Listener) bool {
		return other == l
	})
	if len(next) == 0 {
		delete(r.byType, l.eventType)
	} else {
		r.byType[l.eventType] = next
	}
	return true
}

func (r *registry) removeMethod(key methodKey) bool {
	return syncx.LockFuncT(&r.mux, func() bool {
		l, ok := r.byKey[key]
		if !ok {
			return false
		}
		return r.removeLocked(l)
	})
}

// removeOwner removes every listener owned by ownerID, returning how many were removed.
func (r *registry) removeOwner(ownerID any) int {
	return syncx.LockFuncT(&r.mux, func() int {
		removed := 0
		for _, l := range r.byOwner[ownerID].Slice() {
			if r.removeLocked(l) {
				removed++
			}
		}
		return removed
	})
}

// listeners returns the delivery ordered listeners for t. The result must not be modified.
func (r *registry) listeners(t reflect.Type) []*Listener {
	return syncx.RLockFuncT(&r.mux, func() []*Listener {
		return r.byType[t]
	})
}

func (r *registry) has(t reflect.Type) bool {
	return syncx.RLockFuncT(&r.mux, func() bool {
		return len(r.byType[t]) > 0
	})
}

func (r *registry) counts() (listeners, types int) {
	syncx.RLockFunc(&r.mux, func() {
		listeners = r.present.Len()
		types = len(r.byType)
	})
	return listeners, types
}

func (r *registry) clear() {
	syncx.LockFunc(&r.mux, func() {
		r.byType = map[reflect.Type][]*Listener{}
		r.present = set.New[*Listener]()
		r.byKey = map[methodKey]*Listener{}
		r.byOwner = map[any]set.Set[*Listener]{}
		r.ownerOf = map[*Listener]any{}
	})
}
