// Package notifier turns task completion and failure messages from the
// coordination store into insight events for the push gateway.
package notifier
