// Package constants centralizes configuration defaults shared across the CLI.
//
// File permissions, engine timeouts and TLS warning windows live here so the
// engines and cmd/ agree on them without importing each other.
package constants
