// Package rotation hands out cajero indices to first-time users in
// round-robin order off a shared counter.
package rotation

import (
	"context"
	"errors"
	"fmt"

	"github.com/nidhogg/ruleta/internal/kv"
)

// ErrNoCajeros is returned when no cajeros are configured; the request is
// fatal and operator-actionable.
var ErrNoCajeros = errors.New("rotation: no cajeros configured")

const counterKey = "currentCajeroIndex"

// Assigner computes the next cajero index for a first-time user.
type Assigner struct {
	store kv.Store
}

// New creates an Assigner over the shared rotation counter.
func New(store kv.Store) *Assigner {
	return &Assigner{store: store}
}

// Next atomically advances the rotation counter and maps it onto the catalog.
// No two concurrent callers observe the same raw counter value, so indices
// cycle 0..size-1 with no slot handed out twice before a full wrap.
func (a *Assigner) Next(ctx context.Context, size int) (int, error) {
	if size == 0 {
		return 0, ErrNoCajeros
	}
	n, err := a.store.Incr(ctx, counterKey)
	if err != nil {
		return 0, fmt.Errorf("advance rotation counter: %w", err)
	}
	return int((n - 1) % int64(size)), nil
}
