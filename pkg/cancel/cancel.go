// Package cancel provides a one-shot cancellation signal shared between the
// party requesting a scan and the worker performing it.
//
// The worker never blocks on the signal; it polls Token.Check at its
// checkpoints. Releasing the Source without calling Cancel is observed by
// the worker as a cancellation, so an abandoned consumer stops the scan.
package cancel

import (
	"context"
	"sync"
)

// Signal is the result of polling a Token.
type Signal int

const (
	// Continue means no cancellation has been requested.
	Continue Signal = iota
	// Cancelled means the requester fired the signal or went away.
	Cancelled
)

func (s Signal) String() string {
	if s == Cancelled {
		return "cancelled"
	}
	return "continue"
}

// Source is the requester side of a cancellation signal.
type Source struct {
	once sync.Once
	done chan struct{}
}

// Token is the worker side of a cancellation signal. The zero Token never
// fires.
type Token struct {
	done <-chan struct{}
}

// New creates a linked Source and Token.
func New() (*Source, Token) {
	done := make(chan struct{})
	return &Source{done: done}, Token{done: done}
}

// Never returns a Token that is never cancelled.
func Never() Token {
	return Token{}
}

// FromContext returns a Token that fires when ctx is done.
func FromContext(ctx context.Context) Token {
	return Token{done: ctx.Done()}
}

// Cancel fires the signal. Calling it more than once has no further effect.
func (s *Source) Cancel() {
	s.once.Do(func() { close(s.done) })
}

// Close releases the requester side. The worker cannot distinguish a
// released source from an explicit Cancel.
func (s *Source) Close() {
	s.Cancel()
}

// Check polls the signal without blocking.
func (t Token) Check() Signal {
	if t.done == nil {
		return Continue
	}
	select {
	case <-t.done:
		return Cancelled
	default:
		return Continue
	}
}

// Cancelled reports whether Check would return Cancelled.
func (t Token) Cancelled() bool {
	return t.Check() == Cancelled
}

// Done returns a channel closed on cancellation, or nil for a Token that
// never fires. A nil channel blocks forever in a select.
func (t Token) Done() <-chan struct{} {
	return t.done
}
