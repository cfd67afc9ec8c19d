// Package middleware holds the HTTP middleware shared by the API module and
// the root-level station endpoints.
package middleware

import "net/http"

// Func wraps a handler.
type Func func(http.Handler) http.Handler

// Chain is an ordered middleware stack. The first entry is the outermost
// wrapper, so it sees the request first.
type Chain []Func

// New builds a Chain from fns in order.
func New(fns ...Func) Chain {
	return append(Chain(nil), fns...)
}

// Append returns a new Chain with fns added after the existing entries.
// The receiver is left untouched.
func (c Chain) Append(fns ...Func) Chain {
	out := make(Chain, 0, len(c)+len(fns))
	out = append(out, c...)
	return append(out, fns...)
}

// Then wraps h with every middleware in the chain.
func (c Chain) Then(h http.Handler) http.Handler {
	if h == nil {
		h = http.NotFoundHandler()
	}
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i](h)
	}
	return h
}
