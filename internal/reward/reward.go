// Package reward selects the premio handed out on an eligible spin.
//
// Two policies exist. Flat draws uniformly from one pool on every call.
// TieredDaily treats the big pool as a scarce daily promotion: the first
// eligible spin of each calendar day claims the single big premio for that
// day, every other spin draws from the normal pool. The claim is deliberate
// first-come, not a per-spin lottery.
package reward

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/nidhogg/ruleta/internal/kv"
)

// ErrNoPremios is returned when a policy is built with an empty pool.
var ErrNoPremios = errors.New("reward: premio pool is empty")

const dayKeyPrefix = "premio:dia:"

// Policy produces a premio for an eligible spin. big reports whether the
// value came from the big pool (tiered mode only).
type Policy interface {
	Select(ctx context.Context, now time.Time) (premio string, big bool, err error)
}

// Flat draws uniformly from a fixed pool. Stateless and concurrency-safe.
type Flat struct {
	pool []string
}

// NewFlat builds the flat policy.
func NewFlat(pool []string) (*Flat, error) {
	if len(pool) == 0 {
		return nil, ErrNoPremios
	}
	return &Flat{pool: pool}, nil
}

func (f *Flat) Select(ctx context.Context, now time.Time) (string, bool, error) {
	return f.pool[rand.IntN(len(f.pool))], false, nil
}

// TieredDaily grants exactly one big premio per calendar day cluster-wide and
// serves the normal pool otherwise. The day boundary is evaluated in a single
// configured location so all replicas agree on "today".
type TieredDaily struct {
	store  kv.Store
	big    []string
	normal []string
	loc    *time.Location
}

// NewTieredDaily builds the tiered policy. loc defaults to UTC when nil.
func NewTieredDaily(store kv.Store, big, normal []string, loc *time.Location) (*TieredDaily, error) {
	if len(big) == 0 || len(normal) == 0 {
		return nil, ErrNoPremios
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TieredDaily{store: store, big: big, normal: normal, loc: loc}, nil
}

// Select claims the day key atomically via SetNX, so concurrent first-of-day
// spins across processes still yield a single big premio. Losing the claim
// falls through to the normal pool.
func (t *TieredDaily) Select(ctx context.Context, now time.Time) (string, bool, error) {
	day := now.In(t.loc).Format("2006-01-02")
	candidate := t.big[rand.IntN(len(t.big))]
	claimed, err := t.store.SetNX(ctx, dayKeyPrefix+day, candidate)
	if err != nil {
		return "", false, fmt.Errorf("claim day %s: %w", day, err)
	}
	if claimed {
		return candidate, true, nil
	}
	return t.normal[rand.IntN(len(t.normal))], false, nil
}
