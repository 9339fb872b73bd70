package wqm

import "sync"

// Latch keeps the most recent sample of a device stream.
// The main loop polls it instead of consuming the channel itself.
type Latch struct {
	mu   sync.RWMutex
	last RawSample
	ok   bool
	done chan struct{}
}

// NewLatch starts draining in and returns the latch. The latch stops when in closes.
func NewLatch(in <-chan RawSample) *Latch {
	l := &Latch{done: make(chan struct{})}

	go func() {
		defer close(l.done)
		for s := range in {
			l.mu.Lock()
			l.last = s
			l.ok = true
			l.mu.Unlock()
		}
	}()

	return l
}

// Latest returns the most recent sample and whether one was received yet.
func (l *Latch) Latest() (RawSample, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last, l.ok
}

// Pressed reports the button level of the most recent sample.
func (l *Latch) Pressed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ok && l.last.Button
}

// Done is closed once the input stream has ended.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}
