package handle

// Handle is an opaque reference to a host object in an arena.
// The low 32 bits hold the slot number (1-based; 0 is reserved and always
// invalid), the high 32 bits the slot generation at insert time.
type Handle uint64

// Zero is the reserved invalid handle.
const Zero Handle = 0

func (h Handle) slot() uint32       { return uint32(h) }
func (h Handle) generation() uint32 { return uint32(h >> 32) }

func makeHandle(slot, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot))
}

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventReleased
)

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Dropper is optionally implemented by host values that need cleanup
// when their handle is released or the arena closes.
type Dropper interface {
	Drop()
}
