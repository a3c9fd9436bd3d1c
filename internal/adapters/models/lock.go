package models

import (
	"context"
	"sync"

	"github.com/devbush/voxcribe/internal/domain"
)

// keyedLock serializes work per model id. Waiting honors ctx.
type keyedLock struct {
	mu   sync.Mutex
	sems map[domain.ModelID]chan struct{}
}

func (k *keyedLock) lock(ctx context.Context, id domain.ModelID) (func(), error) {
	k.mu.Lock()
	if k.sems == nil {
		k.sems = make(map[domain.ModelID]chan struct{})
	}
	sem, ok := k.sems[id]
	if !ok {
		sem = make(chan struct{}, 1)
		k.sems[id] = sem
	}
	k.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
