package job

import (
	"fmt"
	"testing"
)

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster()
	a, cancelA := b.Subscribe()
	c, cancelC := b.Subscribe()
	defer cancelA()
	defer cancelC()

	b.Publish(Snapshot{JobID: "j1", Event: EventJobCreated})

	for _, ch := range []<-chan Snapshot{a, c} {
		s := <-ch
		if s.JobID != "j1" || s.Event != EventJobCreated {
			t.Errorf("snapshot = %+v", s)
		}
	}
}

func TestBroadcasterDropsOldestWhenFull(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	// Overfill the buffer without draining. Publish must not block, and the
	// surviving events are the newest ones in order.
	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		b.Publish(Snapshot{JobID: fmt.Sprintf("j%d", i)})
	}

	last := -1
	for i := 0; i < subscriberBuffer; i++ {
		s := <-ch
		var n int
		fmt.Sscanf(s.JobID, "j%d", &n)
		if n <= last {
			t.Fatalf("events out of order: %d after %d", n, last)
		}
		last = n
	}
	if last != total-1 {
		t.Errorf("newest surviving event = j%d, want j%d", last, total-1)
	}
	select {
	case s := <-ch:
		t.Errorf("unexpected extra event %q", s.JobID)
	default:
	}
}

func TestBroadcasterCancel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel not closed on cancel")
	}
	// Cancel is idempotent and publishing after cancel is safe.
	cancel()
	b.Publish(Snapshot{JobID: "after"})
}
