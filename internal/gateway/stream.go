package gateway

import (
	"log/slog"
	"sync"

	"tgbridge/internal/domain"
)

// Dispatcher fans inbound events out to per-dialog subscribers. Subscribers
// get a handle back; cancelling the handle detaches the callback and is safe
// to call more than once.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[int64][]namedHandler
	nextID   int
	logger   *slog.Logger
}

type namedHandler struct {
	id int
	fn func(domain.InboundEvent)
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[int64][]namedHandler),
		logger:   logger,
	}
}

// Subscribe registers a callback for events on the given dialog.
func (d *Dispatcher) Subscribe(dialogID int64, fn func(domain.InboundEvent)) domain.Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.handlers[dialogID] = append(d.handlers[dialogID], namedHandler{id: d.nextID, fn: fn})
	return &subscription{d: d, dialogID: dialogID, id: d.nextID}
}

type subscription struct {
	d        *Dispatcher
	dialogID int64
	id       int
	once     sync.Once
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.d.remove(s.dialogID, s.id)
	})
}

func (d *Dispatcher) remove(dialogID int64, id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	handlers := d.handlers[dialogID]
	for i, h := range handlers {
		if h.id == id {
			d.handlers[dialogID] = append(handlers[:i], handlers[i+1:]...)
			break
		}
	}
	if len(d.handlers[dialogID]) == 0 {
		delete(d.handlers, dialogID)
	}
}

// Dispatch delivers the event to every subscriber of its dialog, in
// registration order. A panicking handler is logged and does not take the
// update loop down.
func (d *Dispatcher) Dispatch(ev domain.InboundEvent) {
	d.mu.RLock()
	handlers := make([]namedHandler, len(d.handlers[ev.DialogID]))
	copy(handlers, d.handlers[ev.DialogID])
	d.mu.RUnlock()

	for _, h := range handlers {
		func(nh namedHandler) {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("event handler panic", "dialog", ev.DialogID, "handler", nh.id, "panic", r)
				}
			}()
			nh.fn(ev)
		}(h)
	}
}

// Active returns the number of attached subscriptions across all dialogs.
func (d *Dispatcher) Active() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, hs := range d.handlers {
		n += len(hs)
	}
	return n
}
