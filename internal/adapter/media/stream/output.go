package stream

import (
	"github.com/gopxl/beep/v2"
)

// Output is the audio sink handles are mixed into.
// Lock and Unlock guard streamer state against the goroutine that pulls
// samples, the same way speaker.Lock does for the platform speaker.
type Output interface {
	// Init prepares the output at rate. Calls after the first are no-ops.
	Init(rate beep.SampleRate) error

	// Play adds s to the mix. s is dropped once it reports ok == false.
	Play(s beep.Streamer)

	Lock()
	Unlock()
}
