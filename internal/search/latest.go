package search

import (
	"context"
	"sync"
)

// Latest tracks the most recent in-flight request per client. Starting a new
// request for a client cancels the one it replaces, so a slow earlier search
// can never be delivered after a later one.
type Latest struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]*Token
}

// Token identifies one request started with Begin.
type Token struct {
	client string
	seq    uint64
	cancel context.CancelFunc
}

// NewLatest creates an empty coordinator.
func NewLatest() *Latest {
	return &Latest{inflight: make(map[string]*Token)}
}

// Begin registers a request for client and returns a context that is
// cancelled if another request for the same client begins before Done.
func (l *Latest) Begin(ctx context.Context, client string) (context.Context, *Token) {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	tok := &Token{client: client, seq: l.seq, cancel: cancel}
	if prev, ok := l.inflight[client]; ok {
		prev.cancel()
	}
	l.inflight[client] = tok
	return ctx, tok
}

// Done releases tok and reports whether it was still the client's latest
// request. A false result means the response should be dropped.
func (l *Latest) Done(tok *Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	defer tok.cancel()
	cur, ok := l.inflight[tok.client]
	if !ok || cur.seq != tok.seq {
		return false
	}
	delete(l.inflight, tok.client)
	return true
}

// Len returns the number of clients with a request in flight.
func (l *Latest) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inflight)
}
