package middleware

import (
	"context"

	"github.com/greenoffice/leadchat/pkg/ports"
)

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain applies middlewares so that the first one listed is the outermost.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ping forwards a health check to the wrapped store when it supports one.
func ping(ctx context.Context, next ports.StateStore) error {
	if p, ok := next.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
