// Package notify holds the single transaction status notification shared by
// every workflow. There is no queue: a later notification silently preempts
// an earlier unexpired one, which is acceptable because workflows are
// user-initiated one at a time.
package notify

import (
	"sync"
	"time"
)

// Status is the notification state.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Auto-hide delays. Success is reassurance; an error needs longer to read.
const (
	SuccessHideDelay = 2 * time.Second
	ErrorHideDelay   = 3 * time.Second
)

// Notification is the visible slot content.
type Notification struct {
	Visible bool
	Status  Status
	Message string
}

// Notifier owns the notification slot. Pending messages persist until
// explicitly replaced; success and error messages auto-hide.
type Notifier struct {
	mu      sync.Mutex
	current Notification
	seq     uint64
	timer   *time.Timer
	subs    []func(Notification)

	successDelay time.Duration
	errorDelay   time.Duration
}

// NewNotifier creates an empty, hidden notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		successDelay: SuccessHideDelay,
		errorDelay:   ErrorHideDelay,
	}
}

// Subscribe registers an observer invoked on every slot change, including
// auto-hides. Observers run on the mutating goroutine or the hide timer.
func (n *Notifier) Subscribe(fn func(Notification)) {
	n.mu.Lock()
	n.subs = append(n.subs, fn)
	n.mu.Unlock()
}

// Pending shows a pending message that persists until replaced.
func (n *Notifier) Pending(message string) {
	n.show(StatusPending, message, 0)
}

// Success shows a success message that auto-hides.
func (n *Notifier) Success(message string) {
	n.show(StatusSuccess, message, n.successDelay)
}

// Error shows an error message that auto-hides.
func (n *Notifier) Error(message string) {
	n.show(StatusError, message, n.errorDelay)
}

// Current returns the slot content.
func (n *Notifier) Current() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Notifier) show(status Status, message string, hideAfter time.Duration) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	seq := n.seq
	n.current = Notification{Visible: true, Status: status, Message: message}
	if hideAfter > 0 {
		n.timer = time.AfterFunc(hideAfter, func() { n.hide(seq) })
	}
	current := n.current
	subs := n.subscribers()
	n.mu.Unlock()

	for _, fn := range subs {
		fn(current)
	}
}

// hide clears the slot unless a newer notification has taken it.
func (n *Notifier) hide(seq uint64) {
	n.mu.Lock()
	if n.seq != seq {
		n.mu.Unlock()
		return
	}
	n.current = Notification{Status: StatusPending}
	current := n.current
	subs := n.subscribers()
	n.mu.Unlock()

	for _, fn := range subs {
		fn(current)
	}
}

// subscribers must be called with the lock held.
func (n *Notifier) subscribers() []func(Notification) {
	subs := make([]func(Notification), len(n.subs))
	copy(subs, n.subs)
	return subs
}
