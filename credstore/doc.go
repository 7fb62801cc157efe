// Package credstore provides CredentialStore implementations: Postgres
// for shared deployments and Memory for tests and single-process use.
//
// Both honor the same contract the engine depends on, including the
// compare-and-swap semantics of RotateRefreshHash: of any number of
// concurrent rotations presenting the same prior hash, exactly one wins.
package credstore
