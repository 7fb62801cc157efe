// Package password hashes and verifies user passwords with argon2id.
//
// Hashes are stored in PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash) so parameters travel with
// the hash and verification never depends on current configuration.
// Password content policy (length, character classes) belongs to the
// caller's validation layer, not here.
package password
