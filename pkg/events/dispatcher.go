package events

import (
	"sort"
	"strings"
	"sync"

	"github.com/cbodonnell/gametable/pkg/log"
)

const (
	// BeforeHookPrefix marks a listener as a pre-dispatch hook for an exact event name
	BeforeHookPrefix = "before:"
	// AfterHookPrefix marks a listener as a post-dispatch hook for an exact event name
	AfterHookPrefix = "after:"
)

// Handler handles a dispatched event. The event name is passed so that
// wildcard listeners can tell which event triggered them.
type Handler func(event string, payload interface{}, ctx *Context)

// Context is created fresh for every Emit call and carries the
// cancellation flag shared by all handlers of that dispatch.
type Context struct {
	canceled bool
}

// Cancel stops the current dispatch. No further handler runs for this
// Emit call. Other in-flight or future dispatches are unaffected.
func (c *Context) Cancel() {
	c.canceled = true
}

// IsCanceled reports whether a handler canceled the dispatch.
func (c *Context) IsCanceled() bool {
	return c.canceled
}

type listener struct {
	pattern  string
	handler  Handler
	priority int
	seq      int
}

// Dispatcher is an in-process pub/sub dispatcher with priority ordering
// and mid-chain cancellation. Each room owns exactly one Dispatcher.
type Dispatcher struct {
	lock      sync.RWMutex
	emitLock  sync.Mutex
	listeners []listener
	nextSeq   int
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers a handler for a pattern with priority 0.
func (d *Dispatcher) Subscribe(pattern string, handler Handler) {
	d.SubscribeWithPriority(pattern, handler, 0)
}

// SubscribeWithPriority registers a handler for a pattern. Lower priority
// numbers run earlier; ties run in registration order. A pattern is an
// exact event name, "*" to match everything, or "ns:*" to match any event
// whose name starts with "ns:". Patterns prefixed with "before:" or
// "after:" register hooks for an exact event name instead of ordinary
// listeners.
func (d *Dispatcher) SubscribeWithPriority(pattern string, handler Handler, priority int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.listeners = append(d.listeners, listener{
		pattern:  pattern,
		handler:  handler,
		priority: priority,
		seq:      d.nextSeq,
	})
	d.nextSeq++
}

// Emit synchronously runs every matching handler for the event in three
// phases: before-hooks, main listeners, after-hooks. Each phase runs in
// ascending priority order with stable ties. If a before-hook cancels,
// the main listeners and after-hooks do not run. A panicking handler is
// recovered and logged, and dispatch continues with the next handler.
//
// Concurrent Emit calls are serialized, so handlers for one dispatcher
// never run on two goroutines at once. Handlers must not Emit on their
// own dispatcher.
func (d *Dispatcher) Emit(event string, payload interface{}) {
	d.emitLock.Lock()
	defer d.emitLock.Unlock()

	ctx := &Context{}

	before := d.matching(BeforeHookPrefix + event)
	d.runPhase(event, payload, ctx, before)
	if ctx.IsCanceled() {
		return
	}

	main := d.matching(event)
	d.runPhase(event, payload, ctx, main)
	if ctx.IsCanceled() {
		return
	}

	after := d.matching(AfterHookPrefix + event)
	d.runPhase(event, payload, ctx, after)
}

// matching returns listeners whose pattern matches the event, sorted by
// priority with registration order breaking ties. Hook-named patterns are
// matched exactly, never by wildcard, so a "*" listener does not fire for
// "before:player:move".
func (d *Dispatcher) matching(event string) []listener {
	d.lock.RLock()
	defer d.lock.RUnlock()

	isHook := strings.HasPrefix(event, BeforeHookPrefix) || strings.HasPrefix(event, AfterHookPrefix)

	var matched []listener
	for _, l := range d.listeners {
		if isHook {
			if l.pattern == event {
				matched = append(matched, l)
			}
			continue
		}
		// hook registrations are not ordinary listeners
		if strings.HasPrefix(l.pattern, BeforeHookPrefix) || strings.HasPrefix(l.pattern, AfterHookPrefix) {
			continue
		}
		if Matches(l.pattern, event) {
			matched = append(matched, l)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].priority != matched[j].priority {
			return matched[i].priority < matched[j].priority
		}
		return matched[i].seq < matched[j].seq
	})

	return matched
}

func (d *Dispatcher) runPhase(event string, payload interface{}, ctx *Context, listeners []listener) {
	for _, l := range listeners {
		d.runHandler(event, payload, ctx, l)
		if ctx.IsCanceled() {
			return
		}
	}
}

// runHandler isolates a single handler so that one panicking handler
// cannot starve its siblings for the rest of the dispatch.
func (d *Dispatcher) runHandler(event string, payload interface{}, ctx *Context, l listener) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler for pattern %q panicked during %q: %v", l.pattern, event, r)
		}
	}()
	l.handler(event, payload, ctx)
}

// Matches reports whether a listener pattern matches an event name.
// "*" matches everything, a trailing "*" matches any event sharing the
// prefix, anything else requires exact equality.
func Matches(pattern, event string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(event, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == event
}
