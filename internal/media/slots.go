package media

import (
	"context"
	"sync"
)

// Slot identifies a display target, such as a list row's image view.
type Slot uint64

type slotState struct {
	gen    uint64
	key    ImageKey
	active bool
	cancel context.CancelFunc
}

// slotArena tracks the active load task of every slot by generation. A
// result is applied only if the generation it captured is still current.
type slotArena struct {
	mu    sync.Mutex
	next  Slot
	slots map[Slot]*slotState
}

func newSlotArena() *slotArena {
	return &slotArena{slots: make(map[Slot]*slotState)}
}

func (a *slotArena) newSlot() Slot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	a.slots[a.next] = &slotState{}
	return a.next
}

// begin makes key the slot's active task. It returns false when the slot is
// already loading key, or when the slot was never allocated or has been
// released. A different active task is cancelled and superseded.
func (a *slotArena) begin(slot Slot, key ImageKey, cancel context.CancelFunc) (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.slots[slot]
	if !ok {
		return 0, false
	}
	if st.active && st.key == key {
		return 0, false
	}
	if st.active && st.cancel != nil {
		st.cancel()
	}
	st.gen++
	st.key = key
	st.active = true
	st.cancel = cancel
	return st.gen, true
}

// finish reports whether gen is still the slot's active task and, if so,
// marks the slot idle.
func (a *slotArena) finish(slot Slot, gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.slots[slot]
	if !ok || !st.active || st.gen != gen {
		return false
	}
	st.active = false
	st.cancel = nil
	return true
}

// invalidate drops the slot's active task, if any. It reports whether the
// slot is live.
func (a *slotArena) invalidate(slot Slot) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.slots[slot]
	if !ok {
		return false
	}
	a.supersede(st)
	return true
}

// release invalidates the slot and forgets it.
func (a *slotArena) release(slot Slot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if st, ok := a.slots[slot]; ok {
		a.supersede(st)
		delete(a.slots, slot)
	}
}

func (a *slotArena) supersede(st *slotState) {
	if st.active && st.cancel != nil {
		st.cancel()
	}
	st.gen++
	st.active = false
	st.cancel = nil
}

func (a *slotArena) size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots)
}
