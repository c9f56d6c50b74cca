package tts

import "sync"

// Dispatcher runs observer callbacks on the presentation thread.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// ImmediateDispatcher runs callbacks inline on the calling goroutine.
type ImmediateDispatcher struct{}

// Dispatch implements Dispatcher.
func (ImmediateDispatcher) Dispatch(fn func()) { fn() }

// SerialDispatcher runs callbacks one at a time, in submission order, on
// a dedicated goroutine.
type SerialDispatcher struct {
	queue chan func()
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewSerialDispatcher starts a dispatcher with room for size pending
// callbacks before Dispatch blocks.
func NewSerialDispatcher(size int) *SerialDispatcher {
	d := &SerialDispatcher{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *SerialDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case fn := <-d.queue:
			fn()
		case <-d.done:
			// drain what was already accepted
			for {
				select {
				case fn := <-d.queue:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Dispatch implements Dispatcher. Callbacks submitted after Close are
// dropped.
func (d *SerialDispatcher) Dispatch(fn func()) {
	select {
	case <-d.done:
		return
	default:
	}
	select {
	case d.queue <- fn:
	case <-d.done:
	}
}

// Close stops the dispatcher after running queued callbacks.
func (d *SerialDispatcher) Close() {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
}
