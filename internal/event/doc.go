// Package event defines the canonical sports event record shared by the
// collectors, the storage layer, and the webhook payloads.
//
// The package owns the validation rules that turn raw scraped fields into
// that canonical shape, the natural-key generation used for dedup, and the
// date normalization that copes with the many formats the scraped sources
// use.
package event
