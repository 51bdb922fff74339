package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serialises answers to one conversation across replicas of the service.
// The in-process session manager already orders calls within a single instance.
type DistributedLocker interface {
	// Lock blocks until key is held, ctx ends, or the implementation gives up.
	// The lock expires after ttl even if the holder crashes.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
