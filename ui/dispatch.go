package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/localtts/tts"
)

// callbackMsg carries a controller or exporter callback into the update
// loop, where it runs like any other message.
type callbackMsg func()

// dispatcher implements tts.Dispatcher by queueing callbacks for a
// running program. Dispatch never blocks: it may be called from inside
// the update loop, while the program is not reading messages. One
// goroutine sends the queue to the program in order, starting once the
// program is bound.
type dispatcher struct {
	mu    sync.Mutex
	queue []tea.Msg
	ready chan struct{}
	once  sync.Once
}

var _ tts.Dispatcher = (*dispatcher)(nil)

func newDispatcher() *dispatcher {
	return &dispatcher{ready: make(chan struct{}, 1)}
}

func (d *dispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, callbackMsg(fn))
	d.mu.Unlock()

	select {
	case d.ready <- struct{}{}:
	default:
	}
}

// bind starts delivering to send. Callbacks queued before bind go
// first.
func (d *dispatcher) bind(send func(tea.Msg)) {
	d.once.Do(func() { go d.deliver(send) })
}

func (d *dispatcher) deliver(send func(tea.Msg)) {
	for range d.ready {
		d.mu.Lock()
		msgs := d.queue
		d.queue = nil
		d.mu.Unlock()

		for _, msg := range msgs {
			send(msg)
		}
	}
}
