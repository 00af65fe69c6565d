package middleware

import "github.com/julienschmidt/httprouter"

// Middleware wraps a route handler.
type Middleware func(httprouter.Handle) httprouter.Handle

// Chain composes mws so the first one runs outermost.
func Chain(mws ...Middleware) Middleware {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
