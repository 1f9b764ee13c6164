//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"iter"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
	Wait()
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

// IRegistry is the read side of the identity registry needed to route a send.
// Group returns a snapshot taken under a single lock.
type IRegistry interface {
	User(id domain.UserID) (domain.User, error)
	Group(id domain.GroupID) (domain.Group, error)
}

type IMailbox interface {
	Enqueue(ctx context.Context, entry domain.Entry) error
	Drain() iter.Seq[domain.Entry]
	Len() int
	Notify() <-chan struct{}
	Close()
}

type IMailboxDirectory interface {
	Get(user domain.UserID) (IMailbox, bool)
}

type IFanout interface {
	Deliver(ctx context.Context, entry domain.Entry, recipients []domain.UserID) []domain.Delivery
}

// Transport pushes an entry to a live connection of the user.
// Framing, serialization and reconnection belong to the implementation.
type Transport interface {
	Push(ctx context.Context, user domain.UserID, entry domain.Entry) error
}
