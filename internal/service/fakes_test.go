package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/TanmoySin/sessionguard/internal/domain/auth"
	"github.com/TanmoySin/sessionguard/internal/domain/session"
	"github.com/TanmoySin/sessionguard/internal/port/outbound"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testUser = auth.User{ID: "u-1", Email: "ada@example.com", Name: "Ada", Role: auth.RoleMember}

// fakeAuthAPI implements outbound.AuthAPI for service tests.
type fakeAuthAPI struct {
	mu sync.Mutex

	loginResult outbound.LoginResult
	loginErr    error

	status    outbound.SessionStatus
	statusErr error
	// statusGate, when non-nil, blocks SessionStatus until closed.
	statusGate chan struct{}

	pingErr error

	loginCalls  int
	statusCalls int
	pingCalls   int
	logoutCalls int
}

func newFakeAuthAPI() *fakeAuthAPI {
	return &fakeAuthAPI{
		loginResult: outbound.LoginResult{User: testUser, Credential: "tok-1", SessionID: "sess-1"},
		status:      outbound.SessionStatus{Active: true, IdleRemaining: 10 * time.Minute},
	}
}

func (f *fakeAuthAPI) Login(_ context.Context, _ outbound.Credentials) (outbound.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.loginResult, f.loginErr
}

func (f *fakeAuthAPI) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

func (f *fakeAuthAPI) SessionStatus(_ context.Context) (outbound.SessionStatus, error) {
	f.mu.Lock()
	gate := f.statusGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.status, f.statusErr
}

func (f *fakeAuthAPI) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingCalls++
	return f.pingErr
}

func (f *fakeAuthAPI) Logout(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return nil
}

func (f *fakeAuthAPI) setStatus(status outbound.SessionStatus, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.statusErr = err
}

func (f *fakeAuthAPI) counts() (status, ping, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.pingCalls, f.logoutCalls
}

var _ outbound.AuthAPI = (*fakeAuthAPI)(nil)

// fakeSurface records warning surface calls.
type fakeSurface struct {
	mu     sync.Mutex
	shows  []time.Duration
	clears int
}

func (f *fakeSurface) ShowWarning(remaining time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shows = append(f.shows, remaining)
}

func (f *fakeSurface) ClearWarning() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
}

func (f *fakeSurface) counts() (shows, clears int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shows), f.clears
}

var _ outbound.WarningSurface = (*fakeSurface)(nil)

// fakeNotifier records session-ended notices.
type fakeNotifier struct {
	mu      sync.Mutex
	reasons []session.LogoutReason
}

func (f *fakeNotifier) SessionEnded(reason session.LogoutReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func (f *fakeNotifier) notices() []session.LogoutReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.LogoutReason(nil), f.reasons...)
}

var _ outbound.Notifier = (*fakeNotifier)(nil)

// fakeNavigator counts navigations to the anonymous entry point.
type fakeNavigator struct {
	mu   sync.Mutex
	home int
}

func (f *fakeNavigator) NavigateHome() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.home++
}

func (f *fakeNavigator) homeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.home
}

var _ outbound.Navigator = (*fakeNavigator)(nil)

// fakeCache counts cache wipes.
type fakeCache struct {
	mu     sync.Mutex
	clears int
	err    error
}

func (f *fakeCache) ClearCache(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return f.err
}

func (f *fakeCache) clearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

var _ outbound.CacheClearer = (*fakeCache)(nil)

// waitUntil polls cond every millisecond until it holds or the deadline passes.
func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
