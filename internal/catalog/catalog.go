// Package catalog manages the ordered list of cajeros users get routed to.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/nidhogg/ruleta/internal/kv"
	"go.uber.org/zap"
)

// ErrEmpty is returned when a replacement payload carries no cajeros.
var ErrEmpty = errors.New("catalog: at least one cajero required")

const storeKey = "cajeros"

// Cajero is a payment contact. Field names match the persisted wire format.
type Cajero struct {
	Nombre string `json:"nombre"`
	Numero string `json:"numero"`
}

// Catalog reads and replaces the cajero list. The list stored under the
// "cajeros" key overrides the configured defaults wholesale; there is no
// per-entry mutation.
type Catalog struct {
	store    kv.Store
	defaults []Cajero
	logger   *zap.Logger
}

// New creates a Catalog backed by store, falling back to defaults when no
// override has been saved.
func New(store kv.Store, defaults []Cajero, logger *zap.Logger) *Catalog {
	return &Catalog{store: store, defaults: defaults, logger: logger}
}

// Load returns the current cajero list: the saved override if present and
// non-empty, the defaults otherwise.
func (c *Catalog) Load(ctx context.Context) ([]Cajero, error) {
	var saved []Cajero
	ok, err := c.store.GetJSON(ctx, storeKey, &saved)
	if err != nil {
		return nil, fmt.Errorf("load cajeros: %w", err)
	}
	if ok && len(saved) > 0 {
		return saved, nil
	}
	return c.defaults, nil
}

// Replace persists a new cajero list wholesale. Existing user assignments and
// the rotation counter are deliberately left untouched; stored indices are
// reinterpreted modulo the new length at read time.
func (c *Catalog) Replace(ctx context.Context, cajeros []Cajero) error {
	if len(cajeros) == 0 {
		return ErrEmpty
	}
	if err := c.store.SetJSON(ctx, storeKey, cajeros); err != nil {
		return fmt.Errorf("save cajeros: %w", err)
	}
	c.logger.Info("catalog replaced", zap.Int("count", len(cajeros)))
	return nil
}
