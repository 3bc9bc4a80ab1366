package job

import (
	"sync"

	"github.com/netgrid-io/netgrid/pkg/util"
)

const subscriberBuffer = 64

// Broadcaster fans job snapshots out to subscribers over bounded channels.
// Publish never blocks: when a subscriber's buffer is full the oldest event
// is dropped, so a slow consumer sees gaps but each event it does receive is
// newer than the last. Per-subscriber ordering is preserved.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Snapshot]struct{})}
}

// Subscribe registers a new subscriber channel. Cancel with the returned
// function; the channel is closed on cancellation.
func (b *Broadcaster) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the snapshot to every subscriber without blocking.
func (b *Broadcaster) Publish(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		for {
			select {
			case ch <- s:
			default:
				// Full buffer: drop the oldest queued event and retry.
				select {
				case <-ch:
					util.WithJob(s.JobID).Debug("dropped event for slow subscriber")
				default:
				}
				continue
			}
			break
		}
	}
}
