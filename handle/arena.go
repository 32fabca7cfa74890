package handle

// Arena is an in-memory host object store with generation-checked slots.
// It is not safe for concurrent use; see the package comment.
type Arena struct {
	entries   []entry
	freeList  []uint32
	observers []Observer
	closed    bool
}

type entry struct {
	value  any
	typeID uint32
	gen    uint32
	valid  bool
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Insert stores a value and returns its handle. Returns Zero after Close.
func (a *Arena) Insert(typeID uint32, value any) Handle {
	if a.closed {
		return Zero
	}

	var slot uint32
	if len(a.freeList) > 0 {
		slot = a.freeList[len(a.freeList)-1]
		a.freeList = a.freeList[:len(a.freeList)-1]
		e := &a.entries[slot-1]
		e.value = value
		e.typeID = typeID
		e.valid = true
	} else {
		a.entries = append(a.entries, entry{
			value:  value,
			typeID: typeID,
			valid:  true,
		})
		slot = uint32(len(a.entries))
	}

	h := makeHandle(slot, a.entries[slot-1].gen)
	a.notify(Event{Type: EventCreated, Handle: h, TypeID: typeID, Value: value})
	return h
}

// Get retrieves a value by handle. A released or reused slot fails the
// generation check and returns (nil, false).
func (a *Arena) Get(h Handle) (any, bool) {
	e := a.lookup(h)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// GetTyped retrieves a value only if it matches the expected type.
func (a *Arena) GetTyped(h Handle, typeID uint32) (any, bool) {
	e := a.lookup(h)
	if e == nil || e.typeID != typeID {
		return nil, false
	}
	return e.value, true
}

// TypeID returns the type ID for a live handle.
func (a *Arena) TypeID(h Handle) (uint32, bool) {
	e := a.lookup(h)
	if e == nil {
		return 0, false
	}
	return e.typeID, true
}

// Release drops a host object and returns (value, true) exactly once.
// Releasing a stale or already-released handle is a no-op.
func (a *Arena) Release(h Handle) (any, bool) {
	e := a.lookup(h)
	if e == nil {
		return nil, false
	}

	value := e.value
	typeID := e.typeID
	e.valid = false
	e.value = nil
	e.gen++ // stale handles to this slot now fail the check
	a.freeList = append(a.freeList, h.slot())

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	a.notify(Event{Type: EventReleased, Handle: h, TypeID: typeID, Value: value})
	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (a *Arena) Subscribe(o Observer) {
	a.observers = append(a.observers, o)
}

// Unsubscribe removes an observer.
func (a *Arena) Unsubscribe(o Observer) {
	for i, obs := range a.observers {
		if obs == o {
			a.observers = append(a.observers[:i], a.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live host objects.
func (a *Arena) Len() int {
	count := 0
	for _, e := range a.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live host objects.
func (a *Arena) Each(fn func(Handle, uint32, any) bool) {
	for i := range a.entries {
		e := &a.entries[i]
		if !e.valid {
			continue
		}
		if !fn(makeHandle(uint32(i+1), e.gen), e.typeID, e.value) {
			break
		}
	}
}

// Close releases all live objects and stops accepting inserts.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	for i := range a.entries {
		e := &a.entries[i]
		if !e.valid {
			continue
		}
		if d, ok := e.value.(Dropper); ok {
			d.Drop()
		}
		e.valid = false
		e.value = nil
	}

	a.entries = nil
	a.freeList = nil
	return nil
}

func (a *Arena) lookup(h Handle) *entry {
	slot := h.slot()
	if slot == 0 || int(slot) > len(a.entries) {
		return nil
	}
	e := &a.entries[slot-1]
	if !e.valid || e.gen != h.generation() {
		return nil
	}
	return e
}

func (a *Arena) notify(ev Event) {
	for _, o := range a.observers {
		o.OnHandleEvent(ev)
	}
}
