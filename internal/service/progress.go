package service

import (
	"sync"

	"github.com/MKhiriev/go-note-sync/models"
)

// progressNotifier hands reports to an [Observer] from its own goroutine.
// Only the latest pending report is kept, so a slow observer never blocks
// the session and sees coalesced updates instead.
type progressNotifier struct {
	observer Observer

	mu      sync.Mutex
	pending *models.SyncReport

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newProgressNotifier(observer Observer) *progressNotifier {
	n := &progressNotifier{
		observer: observer,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if observer == nil {
		close(n.done)
		return n
	}

	go n.loop()
	return n
}

func (n *progressNotifier) notify(report models.SyncReport) {
	if n.observer == nil {
		return
	}

	clone := report.Clone()
	n.mu.Lock()
	n.pending = &clone
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// close delivers the last pending report and stops the goroutine.
func (n *progressNotifier) close() {
	if n.observer == nil {
		return
	}
	close(n.quit)
	<-n.done
}

func (n *progressNotifier) loop() {
	defer close(n.done)
	for {
		select {
		case <-n.wake:
			n.flush()
		case <-n.quit:
			n.flush()
			return
		}
	}
}

func (n *progressNotifier) flush() {
	n.mu.Lock()
	report := n.pending
	n.pending = nil
	n.mu.Unlock()

	if report != nil {
		n.observer.OnProgress(*report)
	}
}
