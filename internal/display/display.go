// Package display renders live simulation progress to a terminal while a
// solver process is still running. It is the runtime's display
// collaborator: snapshots arrive on an auxiliary goroutine and each one
// overdraws the previous line.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bionetgo/crnc/internal/solver"
)

// Terminal writes one-line progress snapshots, latest populations first.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	profile termenv.Profile
	width   int
	drawn   bool
	end     float64
}

// NewTerminal creates a display writing to w. end is the requested end
// time, used for the progress fraction.
func NewTerminal(w io.Writer, end float64) *Terminal {
	width := 80
	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
			width = tw
		}
	}
	return &Terminal{
		out:     w,
		profile: termenv.ColorProfile(),
		width:   width,
		end:     end,
	}
}

// Update implements solver.Display.
func (t *Terminal) Update(partial *solver.Results) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(partial.Trajectories) == 0 {
		return
	}
	latest := partial.Trajectories[len(partial.Trajectories)-1]
	populations := latest[len(latest)-1]

	var b strings.Builder
	header := fmt.Sprintf("t=%-8.4g", partial.TimeStopped)
	if t.end > 0 {
		header = fmt.Sprintf("t=%-8.4g (%3.0f%%)", partial.TimeStopped, 100*partial.TimeStopped/t.end)
	}
	b.WriteString(termenv.String(header).Foreground(t.profile.Color("6")).String())

	for i, name := range partial.Species {
		if i >= len(populations) {
			break
		}
		entry := fmt.Sprintf("  %s=%g", name, populations[i])
		if b.Len()+len(entry) > t.width {
			b.WriteString(" …")
			break
		}
		b.WriteString(entry)
	}

	if t.drawn {
		fmt.Fprint(t.out, "\r\033[K")
	}
	fmt.Fprint(t.out, b.String())
	t.drawn = true
}

// Done terminates the progress line once the run finishes.
func (t *Terminal) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.drawn {
		fmt.Fprintln(t.out)
		t.drawn = false
	}
}
