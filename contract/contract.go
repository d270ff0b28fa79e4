//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one delivery target: a live connection's outbound queue,
// or a process-wide consumer such as the search indexer.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry is the delivery-facing view of the connection registry.
type IRegistry interface {
	SinksFor(connIDs ...string) []EventSink
	AllSinks() []EventSink
}

// IDelivery fans events out to connections. Best effort only: no queuing
// beyond each sink's own buffer, no retry, no acknowledgment.
type IDelivery interface {
	SendTo(connID string, e event.Event)
	Broadcast(e event.Event)
	SendToRoom(room *domain.Room, e event.Event)
	SendToRoomExcept(room *domain.Room, exceptConnID string, e event.Event)
}
