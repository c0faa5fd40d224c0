// Package webhook delivers event notifications to subscriber-registered
// HTTP endpoints.
//
// Endpoint URLs are validated before any request is made so a subscriber
// cannot point the dispatcher at localhost or private network ranges.
// Delivery is at-least-once per endpoint with a bounded retry loop; a
// failing endpoint never blocks delivery to the others.
package webhook
