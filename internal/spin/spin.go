// Package spin decides, for one usuario and one instant, whether a new
// promotional outcome is produced and what it is.
package spin

import (
	"context"
	"fmt"
	"time"

	"github.com/nidhogg/ruleta/internal/catalog"
	"github.com/nidhogg/ruleta/internal/kv"
	"github.com/nidhogg/ruleta/internal/notify"
	"github.com/nidhogg/ruleta/internal/reward"
	"github.com/nidhogg/ruleta/internal/rotation"
	"go.uber.org/zap"
)

// Cooldown is the window during which a usuario receives the unchanged
// previous decision.
const Cooldown = 24 * time.Hour

const userKeyPrefix = "user:"

// UserState is the persisted per-usuario record. CajeroIndex is a pointer
// because "never assigned" and "assigned slot 0" are different states; the
// other fields default to their zero values when absent.
type UserState struct {
	CajeroIndex  *int   `json:"cajeroIndex,omitempty"`
	LastSpinTime int64  `json:"lastSpinTime,omitempty"` // epoch millis
	LastPrize    string `json:"lastPrize,omitempty"`
}

// Decision is the outcome of one spin request.
type Decision struct {
	YaGiro    bool
	Cajero    *catalog.Cajero
	Premio    string
	Mensaje   string
	Remaining time.Duration
	Big       bool
}

// Record is what gets handed to an audit Recorder after a committed spin.
type Record struct {
	UsuarioID string
	Cajero    string
	Premio    string
	Big       bool
	SpunAt    time.Time
}

// Recorder persists committed spins for operators. Implemented by the audit
// store; failures are logged, never surfaced to the caller.
type Recorder interface {
	RecordSpin(ctx context.Context, rec Record) error
}

// Orchestrator runs the per-usuario state machine: NEW and expired records
// route through the eligible branch, records younger than the cooldown return
// the prior outcome untouched.
type Orchestrator struct {
	store    kv.Store
	catalog  *catalog.Catalog
	assigner *rotation.Assigner
	policy   reward.Policy
	recorder Recorder
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
	cooldown time.Duration
}

// New wires an Orchestrator. recorder and notifier may be nil.
func New(store kv.Store, cat *catalog.Catalog, assigner *rotation.Assigner,
	policy reward.Policy, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		catalog:  cat,
		assigner: assigner,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
		cooldown: Cooldown,
	}
}

// SetRecorder attaches a spin audit recorder.
func (o *Orchestrator) SetRecorder(r Recorder) { o.recorder = r }

// SetNotifier attaches an ops notifier.
func (o *Orchestrator) SetNotifier(n notify.Notifier) { o.notifier = n }

// SetClock overrides the time source. Tests only.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// SetCooldown overrides the cooldown window.
func (o *Orchestrator) SetCooldown(d time.Duration) { o.cooldown = d }

// Spin runs one decision for usuarioID.
//
// Concurrent spins for the same usuario may both observe eligibility and both
// commit, the later write winning. That last-write-wins race is accepted: the
// record is per-user and low stakes. The shared pieces (rotation counter, day
// claim) ride on atomic backend primitives and are not subject to it.
func (o *Orchestrator) Spin(ctx context.Context, usuarioID string) (*Decision, error) {
	now := o.now()
	cajeros, err := o.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(cajeros) == 0 {
		return nil, rotation.ErrNoCajeros
	}

	key := userKeyPrefix + usuarioID
	var state UserState
	found, err := o.store.GetJSON(ctx, key, &state)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", usuarioID, err)
	}

	// Inside the window: return the prior outcome, write nothing.
	if found && state.LastSpinTime > 0 {
		elapsed := now.Sub(time.UnixMilli(state.LastSpinTime))
		if elapsed < o.cooldown {
			remaining := o.cooldown - elapsed
			d := &Decision{
				YaGiro:    true,
				Premio:    state.LastPrize,
				Remaining: remaining,
				Mensaje:   cooldownMessage(remaining),
			}
			if state.CajeroIndex != nil {
				c := cajeros[*state.CajeroIndex%len(cajeros)]
				d.Cajero = &c
			}
			return d, nil
		}
	}

	// Eligible. Sticky assignment: only first-timers consult the rotation.
	if state.CajeroIndex == nil {
		idx, err := o.assigner.Next(ctx, len(cajeros))
		if err != nil {
			return nil, err
		}
		state.CajeroIndex = &idx
	}
	cajero := cajeros[*state.CajeroIndex%len(cajeros)]

	premio, big, err := o.policy.Select(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("select premio: %w", err)
	}

	state.LastSpinTime = now.UnixMilli()
	state.LastPrize = premio
	if err := o.store.SetJSON(ctx, key, state); err != nil {
		// The rotation counter may already be advanced; that drift only
		// skips a slot and is benign.
		return nil, fmt.Errorf("save user %s: %w", usuarioID, err)
	}

	o.logger.Info("spin committed",
		zap.String("usuario", usuarioID),
		zap.String("cajero", cajero.Nombre),
		zap.String("premio", premio),
		zap.Bool("big", big),
	)

	if o.recorder != nil {
		rec := Record{UsuarioID: usuarioID, Cajero: cajero.Nombre, Premio: premio, Big: big, SpunAt: now}
		if err := o.recorder.RecordSpin(ctx, rec); err != nil {
			o.logger.Warn("audit record failed", zap.Error(err))
		}
	}
	if big && o.notifier != nil {
		if err := o.notifier.BigRewardClaimed(ctx, usuarioID, premio); err != nil {
			o.logger.Warn("big reward notification failed", zap.Error(err))
		}
	}

	return &Decision{YaGiro: false, Cajero: &cajero, Premio: premio, Big: big}, nil
}

func cooldownMessage(remaining time.Duration) string {
	horas := int(remaining / time.Hour)
	mins := int(remaining % time.Hour / time.Minute)
	return fmt.Sprintf("⏳ Podrás volver a girar en %dh %dm", horas, mins)
}
