package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/invoicer/internal/notification"
)

// FakeNotifier records notifications and fails on demand
type FakeNotifier struct {
	mu   sync.Mutex
	sent []*notification.Notification
	err  error
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

// FailWith makes every following Notify return err, nil restores delivery
func (n *FakeNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *FakeNotifier) Notify(_ context.Context, msg *notification.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

// Sent returns the delivered notifications in order
func (n *FakeNotifier) Sent() []*notification.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*notification.Notification(nil), n.sent...)
}

func (n *FakeNotifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
	n.err = nil
}
