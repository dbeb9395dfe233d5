package motion

import (
	"time"
)

// CooldownGate converts "motion present this frame" into an "alert now"
// decision, enforcing a minimum interval between alerts.
//
// Two states: Idle (no alert pending suppression) and Suppressed (an alert
// fired within the last cooldown interval). The gate is purely time driven
// and holds no reference to frames or regions.
type CooldownGate struct {
	cooldown  time.Duration
	lastAlert time.Time // zero until the first alert
}

func NewCooldownGate(cooldown time.Duration) *CooldownGate {
	return &CooldownGate{
		cooldown: cooldown,
	}
}

// Evaluate returns true if an alert is permitted now.
// From Idle, motion fires immediately and records 'now' as the last alert
// time. While Suppressed, everything is rejected until the cooldown has
// elapsed; the first evaluation at or after expiry returns to Idle and
// re-applies the Idle rule in the same call, so motion exactly at expiry
// re-triggers immediately.
func (g *CooldownGate) Evaluate(hasMotion bool, now time.Time) bool {
	suppressed := !g.lastAlert.IsZero() && now.Sub(g.lastAlert) < g.cooldown
	if suppressed {
		return false
	}
	if !hasMotion {
		return false
	}
	// The last-alert time never moves backwards, even if the caller's clock does
	if now.After(g.lastAlert) {
		g.lastAlert = now
	}
	return true
}

// LastAlert returns the time of the most recent permitted alert,
// or the zero time if none has fired yet.
func (g *CooldownGate) LastAlert() time.Time {
	return g.lastAlert
}
