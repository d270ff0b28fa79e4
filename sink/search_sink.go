// Package sink holds the process-wide event consumers fed by fan-out.
package sink

import (
	"context"
	"log/slog"

	"chat-relay/domain/event"
	"chat-relay/search"
)

// SearchSink feeds every relayed message into the full-text index.
type SearchSink struct {
	index search.IIndex
	log   *slog.Logger
}

func NewSearchSink(index search.IIndex, log *slog.Logger) SearchSink {
	return SearchSink{index: index, log: log}
}

func (s SearchSink) Consume(_ context.Context, e event.Event) error {
	switch evt := e.(type) {
	case event.MessageReceived:
		return s.index.Add(evt.RoomID, evt.Message)
	default:
		return nil
	}
}
