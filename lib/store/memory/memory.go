// Package memory is the reference store backend: a sharded in-process
// expiring map. State lives exactly as long as the process does, which is the
// contract a single-node deployment gets.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GreenledgerHQ/cerberus/decaymap"
	"github.com/GreenledgerHQ/cerberus/lib/store"
)

const cleanupInterval = 5 * time.Minute

type factory struct{}

func (factory) Build(ctx context.Context, _ json.RawMessage) (store.Interface, error) {
	return New(ctx), nil
}

func (factory) Valid(json.RawMessage) error { return nil }

func init() {
	store.Register("memory", factory{})
}

type impl struct {
	data *decaymap.Impl[[]byte]
}

func (i *impl) Delete(_ context.Context, key string) error {
	if !i.data.Delete(key) {
		return fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return nil
}

func (i *impl) Get(_ context.Context, key string) ([]byte, error) {
	result, ok := i.data.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return result, nil
}

func (i *impl) Set(_ context.Context, key string, value []byte, expiry time.Duration) error {
	i.data.Set(key, value, expiry)
	return nil
}

func (i *impl) cleanupThread(ctx context.Context) {
	t := time.NewTicker(cleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			i.data.Cleanup()
		}
	}
}

// New creates an in-memory store that sweeps stale entries until ctx is
// canceled. This does not scale past one Cerberus instance, use the valkey
// backend for that.
func New(ctx context.Context) store.Interface {
	result := &impl{
		data: decaymap.New[[]byte](),
	}

	go result.cleanupThread(ctx)

	return result
}
