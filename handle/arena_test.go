package handle

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnHandleEvent(e Event) {
	o.events = append(o.events, e)
}

type droppable struct {
	dropped int
}

func (d *droppable) Drop() { d.dropped++ }

func TestArena_Basic(t *testing.T) {
	arena := NewArena()

	h := arena.Insert(1, "test")
	if h == Zero {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := arena.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	_, ok = arena.GetTyped(h, 1)
	if !ok {
		t.Fatal("GetTyped with correct type failed")
	}

	_, ok = arena.GetTyped(h, 2)
	if ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	val, ok = arena.Release(h)
	if !ok {
		t.Fatal("Release failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if arena.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Release")
	}
}

func TestArena_StaleHandle(t *testing.T) {
	arena := NewArena()

	h1 := arena.Insert(1, "first")
	arena.Release(h1)

	// Slot is reused; the old handle must not resurrect.
	h2 := arena.Insert(1, "second")
	if h2.slot() != h1.slot() {
		t.Fatalf("expected slot reuse, got %d vs %d", h2.slot(), h1.slot())
	}
	if h2 == h1 {
		t.Fatal("reused slot must produce a distinct handle")
	}

	if _, ok := arena.Get(h1); ok {
		t.Fatal("stale handle passed the generation check")
	}
	val, ok := arena.Get(h2)
	if !ok || val != "second" {
		t.Fatalf("live handle failed: %v %v", val, ok)
	}
}

func TestArena_DoubleRelease(t *testing.T) {
	arena := NewArena()

	h := arena.Insert(1, "x")
	if _, ok := arena.Release(h); !ok {
		t.Fatal("first Release failed")
	}
	if _, ok := arena.Release(h); ok {
		t.Fatal("second Release must be a no-op")
	}
}

func TestArena_Observer(t *testing.T) {
	arena := NewArena()
	obs := &testObserver{}
	arena.Subscribe(obs)

	h := arena.Insert(7, "test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated {
		t.Fatal("Expected EventCreated")
	}
	if obs.events[0].Handle != h || obs.events[0].TypeID != 7 {
		t.Fatal("Wrong handle or type in event")
	}

	arena.Release(h)
	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventReleased {
		t.Fatal("Expected EventReleased")
	}

	arena.Unsubscribe(obs)
	arena.Insert(1, "more")
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestArena_Dropper(t *testing.T) {
	arena := NewArena()
	d := &droppable{}

	h := arena.Insert(1, d)
	arena.Release(h)
	if d.dropped != 1 {
		t.Fatalf("Drop called %d times, want 1", d.dropped)
	}
}

func TestArena_Close(t *testing.T) {
	arena := NewArena()
	d1 := &droppable{}
	d2 := &droppable{}

	arena.Insert(1, d1)
	h2 := arena.Insert(1, d2)

	if err := arena.Close(); err != nil {
		t.Fatal(err)
	}
	if d1.dropped != 1 || d2.dropped != 1 {
		t.Fatal("Close must drop all live values")
	}

	if h := arena.Insert(1, "late"); h != Zero {
		t.Fatal("Insert after Close must return Zero")
	}
	if _, ok := arena.Get(h2); ok {
		t.Fatal("Get after Close must fail")
	}
	if err := arena.Close(); err != nil {
		t.Fatal("double Close must be a no-op")
	}
}

func TestArena_Each(t *testing.T) {
	arena := NewArena()
	arena.Insert(1, "a")
	h := arena.Insert(2, "b")
	arena.Insert(1, "c")
	arena.Release(h)

	var seen []any
	arena.Each(func(h Handle, typeID uint32, v any) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 2 {
		t.Fatalf("Each visited %d entries, want 2", len(seen))
	}
}
