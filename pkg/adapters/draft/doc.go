// Package draft generates application documents: tailored resume
// summaries and cover letters.
//
// The factory creates drafters based on provider configuration.
// Providers:
//   - template: deterministic offline drafting from built-in templates
//   - anthropic: Claude-backed drafting via the Anthropic API
package draft
