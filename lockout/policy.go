package lockout

import "time"

// Status is the lockout state of a tracker at a given instant.
type Status int

const (
	// Unlocked means authentication may proceed to the password check.
	Unlocked Status = iota
	// Locked means the attempt must be rejected without comparing the
	// password.
	Locked
)

// Tracker mirrors the attempt-tracking fields of a credential record.
// A zero LockUntil means the record is not locked.
type Tracker struct {
	FailedAttempts int
	LockUntil      time.Time
}

// Policy decides lock transitions. The zero value is a disabled policy
// (every method is a passthrough no-op).
type Policy struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

// Check reports whether t is locked at now. An elapsed lock is cleared in
// place (lazy expiry): FailedAttempts resets to zero and the caller
// proceeds to the password check.
func (p Policy) Check(t *Tracker, now time.Time) Status {
	if !p.Enabled || t.LockUntil.IsZero() {
		return Unlocked
	}
	if now.Before(t.LockUntil) {
		return Locked
	}
	t.FailedAttempts = 0
	t.LockUntil = time.Time{}
	return Unlocked
}

// Failure records one failed password check. Returns true when the
// failure reaches the threshold and t transitions to Locked until
// now+Duration. The caller must persist t either way.
func (p Policy) Failure(t *Tracker, now time.Time) bool {
	if !p.Enabled {
		return false
	}
	t.FailedAttempts++
	if t.FailedAttempts >= p.Threshold {
		t.LockUntil = now.Add(p.Duration)
		return true
	}
	return false
}

// Success clears the tracker after a correct password.
func (p Policy) Success(t *Tracker) {
	if !p.Enabled {
		return
	}
	t.FailedAttempts = 0
	t.LockUntil = time.Time{}
}
