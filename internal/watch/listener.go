package watch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ScholarShield/scholarship-client/pkg/logger"
)

// Event is one registry contract notification from the node's websocket feed.
type Event struct {
	Type     string `json:"type"`
	Contract string `json:"contract"`
	RecordID string `json:"record_id"`
}

// Event types that invalidate the local snapshot.
const (
	EventRecordCreated  = "RecordCreated"
	EventRecordVerified = "RecordVerified"
)

// Listener subscribes to registry contract events over a websocket and
// triggers a refresh whenever a record is created or verified elsewhere.
// The connection is re-dialed with backoff after any failure.
type Listener struct {
	url       string
	contract  string
	refresher Refresher
	log       *logger.Logger

	dialer     websocket.Dialer
	maxBackoff time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewListener creates a listener for the contract's events at the given
// websocket URL.
func NewListener(url, contract string, refresher Refresher, log *logger.Logger) *Listener {
	if log == nil {
		log = logger.NewDefault("listener")
	}
	return &Listener{
		url:       url,
		contract:  contract,
		refresher: refresher,
		log:       log,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		maxBackoff: 30 * time.Second,
	}
}

// Start begins the listen loop. Safe to call once per listener.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run(runCtx)
	}()

	l.log.WithField("url", l.url).Info("event listener started")
	return nil
}

// Stop closes the connection and waits for the loop to exit.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	cancel := l.cancel
	l.running = false
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.log.Info("event listener stopped")
	return nil
}

func (l *Listener) run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := l.listen(ctx); err != nil && ctx.Err() == nil {
			l.log.WithError(err).Warn("event stream lost, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when the context ends so ReadMessage unblocks.
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-closed:
		}
	}()

	subscribe := map[string]string{"event": "subscribe", "contract": l.contract}
	if err := conn.WriteJSON(subscribe); err != nil {
		return err
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}
		l.dispatch(ctx, event)
	}
}

func (l *Listener) dispatch(ctx context.Context, event Event) {
	switch event.Type {
	case EventRecordCreated, EventRecordVerified:
	default:
		return
	}
	if event.Contract != "" && event.Contract != l.contract {
		return
	}

	refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	if err := l.refresher.Refresh(refreshCtx); err != nil {
		l.log.WithError(err).
			WithField("event", event.Type).
			Warn("event-driven refresh failed")
	}
}
