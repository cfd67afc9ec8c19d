// Package routes declares HTTP endpoints as data so they can be registered
// on a mux, wrapped by guards and described in an API document.
package routes

import "net/http"

// Route binds a method and pattern to a handler. Summary and Body describe
// the endpoint in generated API documents; Body names the request schema.
// Secured marks routes that reject unauthenticated callers.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	Summary string
	Body    string
	Secured bool
}
