// Package checker holds the executors behind each check kind.
//
// Architecture overview:
//
//   - Every executor implements Checker (Kind + Check) and is independent of
//     the others. Nothing here shares mutable state.
//   - Executors never reach the OS directly: resolver configuration, system
//     commands, interface tables and dialers are fields with production
//     defaults, so tests swap them for fakes.
//   - An executor returns a check.Outcome with its verdict. It returns an
//     error only when it could not reach one; the orchestrator turns that
//     into a result with status error.
//
// Status policy shared by all executors:
//
//	pass     configuration looks sound
//	warning  suboptimal but not unsafe
//	fail     a concrete exposure was found
//	info     neutral finding
//	error    the probe could not complete
//
// Platform notes:
//
//	FirewallChecker reads socketfilterfw on macOS and the iptables INPUT
//	chain on Linux. ProxyChecker adds scutil system proxies on macOS to the
//	environment proxies it reads everywhere.
package checker
