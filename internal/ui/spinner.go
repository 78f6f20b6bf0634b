package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a one-line loading indicator on w. It is the plain
// alternative to the bubbletea view for non-interactive use.
type Spinner struct {
	w        io.Writer
	msg      string
	interval time.Duration

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner writing msg to w.
func NewSpinner(w io.Writer, msg string) *Spinner {
	return &Spinner{
		w:        w,
		msg:      msg,
		interval: 80 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the animation in a goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for i := 0; ; i++ {
			frame := StyleChain.Render(spinnerFrames[i%len(spinnerFrames)])
			fmt.Fprintf(s.w, "\r%s  %s", frame, s.msg)
			select {
			case <-s.stop:
				fmt.Fprintf(s.w, "\r%-70s\r", "")
				return
			case <-t.C:
			}
		}
	}()
}

// Stop halts the spinner and clears its line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
