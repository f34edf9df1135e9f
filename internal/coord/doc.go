// Package coord defines the boundary between the sprint insight processes and
// the shared coordination store: a FIFO task queue, a claim registry that
// admits at most one active holder per task key, and publish/subscribe
// channels used for wake-up and completion signaling.
//
// Implementations live in platform packages; this package only names the
// operations and their guarantees so that the publisher, worker and notifier
// can be tested against any conforming store.
package coord
