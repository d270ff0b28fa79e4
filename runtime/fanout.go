package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Delivery fans events out to connection sinks resolved through the
// registry, plus a fixed set of permanent sinks (search index, timeline).
//
// Best-effort only: no queuing beyond each sink's own buffer, no retries,
// no acknowledgment. Sinks are consumed synchronously so two events sent
// to the same connection keep their order; a connection sink never blocks
// (its queue drops on overflow), and each Consume runs under sinkTimeout
// so a misbehaving permanent sink cannot stall the coordinator for long.
type Delivery struct {
	log         *slog.Logger
	registry    contract.IRegistry
	permanent   []contract.EventSink
	sinkTimeout time.Duration
}

func NewDelivery(log *slog.Logger, registry contract.IRegistry,
	sinkTimeout time.Duration, permanent ...contract.EventSink) *Delivery {
	return &Delivery{
		log:         log,
		registry:    registry,
		permanent:   permanent,
		sinkTimeout: sinkTimeout,
	}
}

func (d *Delivery) SendTo(connID string, e event.Event) {
	d.deliver(d.registry.SinksFor(connID), e)
}

func (d *Delivery) Broadcast(e event.Event) {
	d.deliver(d.registry.AllSinks(), e)
}

func (d *Delivery) SendToRoom(room *domain.Room, e event.Event) {
	d.deliver(d.registry.SinksFor(room.Participants...), e)
}

func (d *Delivery) SendToRoomExcept(room *domain.Room, exceptConnID string, e event.Event) {
	ids := make([]string, 0, len(room.Participants))
	for _, id := range room.Participants {
		if id != exceptConnID {
			ids = append(ids, id)
		}
	}
	d.deliver(d.registry.SinksFor(ids...), e)
}

// deliver offers the event to every resolved sink and, once, to each
// permanent sink.
func (d *Delivery) deliver(sinks []contract.EventSink, e event.Event) {
	for _, s := range sinks {
		d.consume(s, e)
	}
	for _, s := range d.permanent {
		d.consume(s, e)
	}
}

func (d *Delivery) consume(s contract.EventSink, e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
	defer cancel()
	if err := s.Consume(ctx, e); err != nil {
		d.log.Debug(fmt.Sprintf("Sink refused event %s", e.EventName()), "error", err)
	}
}
