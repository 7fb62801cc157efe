// Package token signs and verifies the two credkit token classes.
//
// Access tokens are short-lived and verified offline. Refresh tokens are
// long-lived and additionally checked against a stored digest by the
// engine; HashForStorage produces that digest so raw refresh tokens are
// never persisted.
//
// Verification failures are uniform: every bad token parses to
// [ErrInvalidToken] regardless of which check failed.
package token
