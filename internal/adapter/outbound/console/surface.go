// Package console renders the session lifecycle surfaces on a terminal.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/TanmoySin/sessionguard/internal/domain/session"
)

// Surface writes warnings and notices to a terminal. It implements the
// warning surface, the notifier, the navigator, and the cache clearer, which
// is all the UI a headless client has.
type Surface struct {
	logger *slog.Logger

	mu         sync.Mutex
	out        io.Writer
	visible    bool
	extendFn   func(ctx context.Context) error
	autoExtend bool
}

// NewSurface creates a surface writing to out.
func NewSurface(out io.Writer, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{out: out, logger: logger}
}

// SetExtendFunc registers the action behind the warning's "stay signed in"
// affordance.
func (s *Surface) SetExtendFunc(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extendFn = fn
}

// SetAutoExtend makes the surface invoke the extend action as soon as a
// warning appears, instead of waiting for the user.
func (s *Surface) SetAutoExtend(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoExtend = v
}

// ShowWarning surfaces the pre-expiry warning with the remaining time.
func (s *Surface) ShowWarning(remaining time.Duration) {
	s.mu.Lock()
	s.visible = true
	fmt.Fprintf(s.out, "\n*** Session expires in %s. Press enter to stay signed in, or d to dismiss. ***\n", formatCountdown(remaining))
	extendFn := s.extendFn
	autoExtend := s.autoExtend
	s.mu.Unlock()

	if autoExtend && extendFn != nil {
		go func() {
			if err := extendFn(context.Background()); err != nil {
				s.logger.Warn("auto-extend failed", "error", err)
			}
		}()
	}
}

// ClearWarning removes a surfaced warning. No-op when none is visible.
func (s *Surface) ClearWarning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible {
		return
	}
	s.visible = false
	fmt.Fprintln(s.out, "Session extended.")
}

// WatchInput reads lines from in and drives the warning affordances: while a
// warning is visible, a bare enter extends the session and "d" dismisses it.
// Input arriving with no warning on screen is ignored. Returns when in is
// exhausted or ctx is cancelled; a read blocked on an interactive terminal
// only unblocks on the next line.
func (s *Surface) WatchInput(ctx context.Context, in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.handleInput(ctx, strings.TrimSpace(sc.Text()))
	}
}

func (s *Surface) handleInput(ctx context.Context, line string) {
	s.mu.Lock()
	visible := s.visible
	extendFn := s.extendFn
	s.mu.Unlock()

	if !visible {
		return
	}
	switch line {
	case "":
		if extendFn == nil {
			return
		}
		if err := extendFn(ctx); err != nil {
			s.logger.Warn("extend failed", "error", err)
		}
	case "d", "dismiss":
		s.Dismiss()
	}
}

// Dismiss hides the warning without extending. The countdown keeps running;
// the session still expires on schedule.
func (s *Surface) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
}

// SessionEnded explains why the user was signed out.
func (s *Surface) SessionEnded(reason session.LogoutReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch reason {
	case session.ReasonIdleExpiry:
		fmt.Fprintln(s.out, "You were signed out due to inactivity.")
	default:
		fmt.Fprintln(s.out, "You were signed out.")
	}
}

// NavigateHome returns the terminal to the anonymous prompt.
func (s *Surface) NavigateHome() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, "Signed out.")
}

// ClearCache is a no-op for the console surface, which caches nothing.
func (s *Surface) ClearCache(context.Context) error {
	return nil
}

// formatCountdown renders a duration as M:SS, floored at zero.
func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
