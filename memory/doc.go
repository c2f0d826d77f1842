// Package memory holds the conversation transcript.
//
// Model:
//   - A transcript is an ordered list of role-tagged text messages, replayed
//     verbatim to the completion service on every request.
//   - The first message, when present, is always the system prompt.
//   - Reset drops everything and re-seeds the system prompt from configuration.
package memory
