// Package runner performs one chat exchange with a completion service.
//
// Flow:
//
//	transcript snapshot -> Completer.Stream -> fragments echoed as they arrive -> reply
//
// Invariant:
//   - A turn either returns the full accumulated reply with a nil error, or
//     an empty reply with a *TurnError. Callers only record successful replies.
package runner
