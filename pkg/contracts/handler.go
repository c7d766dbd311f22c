// Package contracts holds the small interfaces the application shell needs
// from feature packages.
package contracts

import "github.com/julienschmidt/httprouter"

// Handler mounts a feature's routes on a router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// RoutesFunc adapts a plain function to Handler.
type RoutesFunc func(*httprouter.Router)

func (f RoutesFunc) RegisterRoutes(r *httprouter.Router) { f(r) }
