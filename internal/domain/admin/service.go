// Package admin guards destructive operations behind a shared PIN with a
// persisted failure counter and temporary lockout.
package admin

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"prefectlog/internal/kvstore"
)

const (
	stateKey = "admin_lockout_state"

	// maxAttempts wrong PINs in a row trigger a lockout.
	maxAttempts = 10

	// lockoutWindow is how long authentication stays suspended.
	lockoutWindow = 15 * time.Minute
)

// lockoutState is the persisted AdminLockoutState blob.
type lockoutState struct {
	FailedAttempts int   `json:"failedAttempts"`
	LockoutUntil   int64 `json:"lockoutUntil,omitempty"` // epoch millis, 0 when unset
}

// Guard verifies the shared admin PIN. The PIN itself is never persisted;
// only a bcrypt hash is held in memory, and only the lockout state is
// written to storage.
type Guard struct {
	kv      kvstore.KV
	pinHash []byte
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// NewGuard hashes pin and binds the guard to kv for lockout persistence.
func NewGuard(kv kvstore.KV, pin string, log *slog.Logger, opts ...Option) (*Guard, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin pin: %w", err)
	}
	g := &Guard{
		kv:      kv,
		pinHash: hash,
		log:     log.With("component", "admin_guard"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Verify checks the supplied PIN. While a lockout is in effect every call
// fails immediately with LockoutError without consuming an attempt. A
// correct PIN resets the failure counter and clears any expired lockout.
func (g *Guard) Verify(pin string) error {
	state := g.loadState()

	if state.LockoutUntil > 0 {
		until := time.UnixMilli(state.LockoutUntil)
		if g.now().Before(until) {
			return &LockoutError{RemainingMinutes: remainingMinutes(g.now(), until)}
		}
	}

	if bcrypt.CompareHashAndPassword(g.pinHash, []byte(pin)) == nil {
		g.saveState(lockoutState{})
		g.log.Info("admin authentication succeeded")
		return nil
	}

	state.FailedAttempts++
	if state.FailedAttempts >= maxAttempts {
		until := g.now().Add(lockoutWindow)
		state.LockoutUntil = until.UnixMilli()
		g.saveState(state)
		g.log.Warn("admin lockout engaged", "failed_attempts", state.FailedAttempts)
		return &LockoutError{RemainingMinutes: remainingMinutes(g.now(), until)}
	}

	g.saveState(state)
	return &PinError{RemainingAttempts: maxAttempts - state.FailedAttempts}
}

func (g *Guard) loadState() lockoutState {
	raw, ok := g.kv.Get(stateKey)
	if !ok || raw == "" {
		return lockoutState{}
	}
	var state lockoutState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		g.log.Warn("unreadable lockout state, resetting", "error", err)
		return lockoutState{}
	}
	return state
}

func (g *Guard) saveState(state lockoutState) {
	raw, err := json.Marshal(state)
	if err == nil {
		err = g.kv.Set(stateKey, string(raw))
	}
	if err != nil {
		g.log.Warn("could not persist lockout state", "error", err)
	}
}

func remainingMinutes(now, until time.Time) int {
	return int(math.Ceil(until.Sub(now).Minutes()))
}
