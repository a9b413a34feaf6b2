package dispatch

import "context"

// Serializer runs handler invocations. Only the invocation runs under it;
// parsing and validation never do.
type Serializer interface {
	Do(ctx context.Context, fn func() error) error
}

// MutexSerializer runs one invocation at a time. Waiting honours ctx.
type MutexSerializer struct {
	sem chan struct{}
}

func NewMutexSerializer() *MutexSerializer {
	return &MutexSerializer{sem: make(chan struct{}, 1)}
}

func (m *MutexSerializer) Do(ctx context.Context, fn func() error) error {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.sem }()
	return fn()
}

// NopSerializer runs every invocation immediately.
type NopSerializer struct{}

func (NopSerializer) Do(_ context.Context, fn func() error) error {
	return fn()
}
