package notify

import (
	"sync"
	"testing"
	"time"
)

func newFastNotifier() *Notifier {
	n := NewNotifier()
	n.successDelay = 20 * time.Millisecond
	n.errorDelay = 30 * time.Millisecond
	return n
}

func TestNotifier_PendingPersists(t *testing.T) {
	n := newFastNotifier()
	n.Pending("Encrypting income data...")

	time.Sleep(60 * time.Millisecond)
	current := n.Current()
	if !current.Visible || current.Status != StatusPending {
		t.Errorf("pending must persist until replaced, got %+v", current)
	}
}

func TestNotifier_SuccessAutoHides(t *testing.T) {
	n := newFastNotifier()
	n.Success("submitted")

	if got := n.Current(); !got.Visible || got.Status != StatusSuccess {
		t.Fatalf("expected visible success, got %+v", got)
	}

	time.Sleep(60 * time.Millisecond)
	if got := n.Current(); got.Visible {
		t.Errorf("success must auto-hide, got %+v", got)
	}
}

func TestNotifier_PreemptionCancelsHide(t *testing.T) {
	n := newFastNotifier()
	n.Success("first")
	n.Pending("second")

	// The first notification's hide timer must not clear the replacement.
	time.Sleep(60 * time.Millisecond)
	current := n.Current()
	if !current.Visible || current.Message != "second" {
		t.Errorf("preempting notification must survive the old timer, got %+v", current)
	}
}

func TestNotifier_Subscribers(t *testing.T) {
	n := newFastNotifier()

	var mu sync.Mutex
	var seen []Notification
	n.Subscribe(func(notification Notification) {
		mu.Lock()
		seen = append(seen, notification)
		mu.Unlock()
	})

	n.Error("failed")
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("expected show and hide events, got %d", len(seen))
	}
	if seen[0].Status != StatusError || !seen[0].Visible {
		t.Errorf("first event should be the visible error, got %+v", seen[0])
	}
	if seen[1].Visible {
		t.Errorf("second event should be the hide, got %+v", seen[1])
	}
}
