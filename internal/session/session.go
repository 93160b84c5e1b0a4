// Package session tracks the wallet connection that gates every workflow.
package session

import (
	"errors"
	"sync"
)

// ErrNotConnected is returned by operations that require a connected wallet.
var ErrNotConnected = errors.New("wallet not connected")

// Gate holds the wallet connection state and the active account.
type Gate struct {
	mu        sync.RWMutex
	connected bool
	account   string
	onConnect []func(account string)
}

// NewGate creates a disconnected session gate.
func NewGate() *Gate {
	return &Gate{}
}

// OnConnect registers a hook fired on each transition to connected.
// Hooks run synchronously on the connecting goroutine; long work belongs in a
// goroutine started by the hook.
func (g *Gate) OnConnect(fn func(account string)) {
	g.mu.Lock()
	g.onConnect = append(g.onConnect, fn)
	g.mu.Unlock()
}

// Connect marks the session connected with the given account. Connecting an
// already-connected session with the same account is a no-op.
func (g *Gate) Connect(account string) {
	g.mu.Lock()
	if g.connected && g.account == account {
		g.mu.Unlock()
		return
	}
	g.connected = true
	g.account = account
	hooks := make([]func(string), len(g.onConnect))
	copy(hooks, g.onConnect)
	g.mu.Unlock()

	for _, fn := range hooks {
		fn(account)
	}
}

// Disconnect marks the session disconnected. In-flight operations are not
// aborted; they run to completion and their results are discarded by callers.
func (g *Gate) Disconnect() {
	g.mu.Lock()
	g.connected = false
	g.account = ""
	g.mu.Unlock()
}

// Connected reports whether a wallet is connected.
func (g *Gate) Connected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connected
}

// Account returns the active account, if connected.
func (g *Gate) Account() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.account, g.connected
}

// RequireAccount returns the active account or ErrNotConnected.
func (g *Gate) RequireAccount() (string, error) {
	account, ok := g.Account()
	if !ok {
		return "", ErrNotConnected
	}
	return account, nil
}
