package crawler

import (
	"context"
	"time"

	"imgcrawl/pkg/retry"
)

const (
	// DefaultBackoffDelay is how long an empty page pauses the crawl
	DefaultBackoffDelay = 5 * time.Second
	// DefaultResumeAfter is how many downloads past the mark clear the backoff
	DefaultResumeAfter = 2
)

// BackoffState is the controller's mode
type BackoffState int

const (
	Normal BackoffState = iota
	BackingOff
)

func (s BackoffState) String() string {
	if s == BackingOff {
		return "backing_off"
	}
	return "normal"
}

// BackoffController decides what happens when a result page comes back
// empty. A first empty page pauses and retries; a second one before enough
// downloads have succeeded means the engine has nothing more to give.
type BackoffController struct {
	Delay       time.Duration
	ResumeAfter int
	// Sleep pauses the crawl; it must honour ctx
	Sleep func(ctx context.Context, d time.Duration) error

	state    BackoffState
	markedAt int
}

// NewBackoffController creates a controller in the Normal state. A
// non-positive delay or a negative resumeAfter falls back to the default.
func NewBackoffController(delay time.Duration, resumeAfter int) *BackoffController {
	if delay <= 0 {
		delay = DefaultBackoffDelay
	}
	if resumeAfter < 0 {
		resumeAfter = DefaultResumeAfter
	}
	return &BackoffController{
		Delay:       delay,
		ResumeAfter: resumeAfter,
		Sleep:       retry.Wait,
	}
}

// State returns the current mode
func (b *BackoffController) State() BackoffState {
	return b.state
}

// Resume returns to Normal once count has moved far enough past the mark
func (b *BackoffController) Resume(count int) {
	if b.state == BackingOff && count > b.markedAt+b.ResumeAfter {
		b.state = Normal
	}
}

// OnEmpty handles an empty page seen at download count. It reports
// terminate=true when the controller was already backing off.
func (b *BackoffController) OnEmpty(ctx context.Context, count int) (terminate bool, err error) {
	if b.state == BackingOff {
		return true, nil
	}
	if err := b.Sleep(ctx, b.Delay); err != nil {
		return false, err
	}
	b.markedAt = count
	b.state = BackingOff
	return false, nil
}
