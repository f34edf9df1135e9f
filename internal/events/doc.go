// Package events carries insight result events from the completion notifier
// to the components that react to them, such as the realtime push gateway.
// The notifier emits without knowing which handlers are registered.
package events
