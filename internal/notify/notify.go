// Package notify pushes operational events (daily big-reward claims, catalog
// replacements) to the channels the operators live in.
package notify

import "context"

// Notifier receives operational events. Implementations must tolerate being
// called concurrently; delivery failures are reported but never block a spin.
type Notifier interface {
	// BigRewardClaimed fires when a usuario claims the day's big premio.
	BigRewardClaimed(ctx context.Context, usuarioID, premio string) error
	// CatalogReplaced fires after an administrative catalog replacement.
	CatalogReplaced(ctx context.Context, count int) error
}

// Multi fans an event out to several notifiers, returning the first error.
type Multi []Notifier

func (m Multi) BigRewardClaimed(ctx context.Context, usuarioID, premio string) error {
	var first error
	for _, n := range m {
		if err := n.BigRewardClaimed(ctx, usuarioID, premio); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) CatalogReplaced(ctx context.Context, count int) error {
	var first error
	for _, n := range m {
		if err := n.CatalogReplaced(ctx, count); err != nil && first == nil {
			first = err
		}
	}
	return first
}
