// Package lockout implements the failed-attempt lockout state machine.
//
// A Policy is a pure decision component: it mutates the attempt tracker
// passed to it and performs no I/O, no clock reads, and no locking. The
// caller supplies the current instant, persists the tracker fields, and
// serializes access per credential record. Lock expiry is lazy — there is
// no background sweep; an expired lock clears on the next check.
package lockout
