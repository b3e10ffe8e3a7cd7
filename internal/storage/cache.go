package storage

import (
	"context"
	"time"

	"airshark/internal/model"
)

// Cache is the durable mirror of the retained set. The memory store stays authoritative;
// cache failures are logged and never reject a post.
type Cache interface {
	Put(ctx context.Context, p model.Post, retainFor time.Duration) error
	Remove(ctx context.Context, ids ...string) error
}

// NopCache discards everything.
type NopCache struct{}

func (NopCache) Put(context.Context, model.Post, time.Duration) error { return nil }
func (NopCache) Remove(context.Context, ...string) error { return nil }
