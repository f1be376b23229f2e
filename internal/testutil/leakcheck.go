// Package testutil provides testing utilities shared across tunestream packages.
package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, opts...)
}

// CheckLeaks registers a leak check as a test cleanup.
// Call it before registering any other cleanup so that it runs last,
// after controllers and servers created by the test have been shut down.
// Goroutines already running when CheckLeaks is called are ignored.
func CheckLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	opts = append(opts, goleak.IgnoreCurrent())
	t.Cleanup(func() {
		goleak.VerifyNone(t, opts...)
	})
}
