package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"inviteguard/lib/sl"
)

// Handler receives dispatched events. Implemented by impl/core.
type Handler interface {
	HandleGuildAvailable(ctx context.Context, evt GuildAvailable) error
	HandleInviteCreated(ctx context.Context, evt InviteCreated) error
	HandleInviteDeleted(ctx context.Context, evt InviteDeleted) error
	HandleMemberJoined(ctx context.Context, evt MemberJoined) error
	HandleMemberLeft(ctx context.Context, evt MemberLeft) error
	HandleMessagePosted(ctx context.Context, evt MessagePosted) error
}

const (
	defaultQueueSize   = 256
	defaultMaxRoutines = 32
)

// Dispatcher consumes gateway events from a queue and fans them out to the
// handler with bounded concurrency. Per-guild ordering of join attribution is
// not the dispatcher's job; the lock manager inside the tracker provides it.
// Handler errors are logged and the event is dropped (at-most-once).
type Dispatcher struct {
	handler Handler
	log     *slog.Logger
	events  chan Event
	sem     chan struct{}
	wg      sync.WaitGroup
}

func NewDispatcher(handler Handler, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		log:     log.With(sl.Module("gateway.dispatcher")),
		events:  make(chan Event, defaultQueueSize),
		sem:     make(chan struct{}, defaultMaxRoutines),
	}
}

// Dispatch enqueues an event for processing. Blocks when the queue is full,
// applying backpressure to the delivering collaborator.
func (d *Dispatcher) Dispatch(evt Event) {
	d.events <- evt
}

// Run processes events until the context is cancelled, then drains in-flight
// handlers.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			d.log.Info("dispatcher stopped")
			return
		case evt := <-d.events:
			d.sem <- struct{}{}
			d.wg.Add(1)
			go func(evt Event) {
				defer func() {
					<-d.sem
					d.wg.Done()
				}()
				if err := d.handle(ctx, evt); err != nil {
					d.log.With(
						slog.String("event", evt.EventType()),
					).Error("handling event", sl.Err(err))
				}
			}(evt)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, evt Event) error {
	switch e := evt.(type) {
	case GuildAvailable:
		return d.handler.HandleGuildAvailable(ctx, e)
	case InviteCreated:
		return d.handler.HandleInviteCreated(ctx, e)
	case InviteDeleted:
		return d.handler.HandleInviteDeleted(ctx, e)
	case MemberJoined:
		return d.handler.HandleMemberJoined(ctx, e)
	case MemberLeft:
		return d.handler.HandleMemberLeft(ctx, e)
	case MessagePosted:
		return d.handler.HandleMessagePosted(ctx, e)
	default:
		return fmt.Errorf("unknown event type %T", evt)
	}
}
