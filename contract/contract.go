//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"cam-relay/domain"
	"cam-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
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

// EventSink is the outbound side of the relay: progress, status and decoded artifacts.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// MessageHandler receives raw transport messages.
type MessageHandler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) error
}

// Decoder is the secure decode pipeline as seen by the decode workers.
type Decoder interface {
	Decode(raw []byte) (domain.Decoded, error)
}
