package events

import "context"

// Sink receives events forwarded off the bus, typically into an external
// system for durable audit trails.
type Sink interface {
	Send(ctx context.Context, event Event) error
	Close() error
}

// Forward subscribes to the bus and pushes every event into the sink
// until ctx is cancelled. Each delivered event is reported through
// onSent; Send errors are reported through onError and do not stop the
// pump, because a sink outage must never stall a workflow. Either
// callback may be nil.
func Forward(ctx context.Context, bus Bus, sink Sink, onSent func(Event), onError func(error)) {
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := sink.Send(ctx, ev); err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onSent != nil {
				onSent(ev)
			}
		}
	}
}
