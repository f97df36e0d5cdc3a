// Package observer implements the push-on-change subscriptions the player
// exposes to its user interface and renderer.
//
// A Value stores the latest value and a list of callbacks. Set and
// SetIfChanged invoke the callbacks synchronously on the calling goroutine,
// which for the player is always its control loop, so subscribers do not
// need their own locking. Observe delivers the current value immediately and
// then every change until the Subscription is closed.
package observer
