package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerFrames is the braille animation cycle.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner is a minimal stderr progress indicator for long single
// operations. It is not used when --verbose logging is active, since the
// animation and log lines would fight over the terminal.
type spinner struct {
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	started bool
	once    sync.Once

	mu sync.Mutex // guards stderr writes against clearLine
}

// newSpinner creates a spinner that also stops when ctx is canceled.
func newSpinner(ctx context.Context, message string) *spinner {
	sctx, cancel := context.WithCancel(ctx)
	return &spinner{
		message: message,
		ctx:     sctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// start begins the animation on a background goroutine.
func (s *spinner) start() {
	s.started = true
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				frame := spinnerFrames[i%len(spinnerFrames)]
				s.mu.Lock()
				fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
				s.mu.Unlock()
			}
		}
	}()
}

// stop halts the animation and clears the line. Safe to call more than
// once, and before start.
func (s *spinner) stop() {
	s.once.Do(func() {
		s.cancel()
		if s.started {
			<-s.stopped
		}
		s.clearLine()
	})
}

// stopSuccess stops the spinner and prints a success line in its place.
func (s *spinner) stopSuccess(format string, args ...any) {
	s.stop()
	printSuccess(format, args...)
}

// stopError stops the spinner and prints an error line in its place.
func (s *spinner) stopError(format string, args ...any) {
	s.stop()
	printError(format, args...)
}

func (s *spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}
