package middleware_test

import (
	"github.com/greenoffice/leadchat/pkg/adapters/memory"
	"github.com/greenoffice/leadchat/pkg/ports"
)

func newUnderlying() *memory.Store { return memory.NewStore() }

var _ ports.StateStore = (*memory.Store)(nil)
