package watcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mixelka/codewatch/internal/database"
)

func TestStartWithoutSettings(t *testing.T) {
	h := newHarness(t, Options{Interval: 10 * time.Millisecond})
	h.store.settingsErr = database.ErrNotFound

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if h.svc.Running() {
		t.Error("service should stay idle")
	}
	if n := h.provider.opens.Load(); n != 0 {
		t.Errorf("opens = %d, want 0", n)
	}
	if n := h.tokens.Load(); n != 0 {
		t.Errorf("notifiers built = %d, want 0", n)
	}
}

func TestStartWithoutToken(t *testing.T) {
	h := newHarness(t, Options{Interval: 10 * time.Millisecond})
	h.store.settings.TelegramToken = ""

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if h.svc.Running() {
		t.Error("service should stay idle")
	}
	if n := h.provider.opens.Load(); n != 0 {
		t.Errorf("opens = %d, want 0", n)
	}
}

func TestStartStoreError(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.settingsErr = errors.New("database is locked")

	if err := h.svc.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if h.svc.Running() {
		t.Error("service should not run")
	}
}

func TestStopNeverStarted(t *testing.T) {
	h := newHarness(t, Options{})

	h.svc.Stop()
	h.svc.Stop()

	if h.svc.Running() {
		t.Error("service should not run")
	}
}

func TestStartRunsImmediatelyThenOnTicks(t *testing.T) {
	h := newHarness(t, Options{Interval: 20 * time.Millisecond})
	h.addMessage("m1", "Login", "Code 482913")

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !h.svc.Running() {
		t.Error("service should be running")
	}

	waitFor(t, "first pass", func() bool { return h.provider.opens.Load() >= 1 })
	waitFor(t, "a ticked pass", func() bool { return h.provider.opens.Load() >= 3 })

	h.svc.Stop()
	h.svc.Wait()

	if h.svc.Running() {
		t.Error("service should be stopped")
	}
	opens := h.provider.opens.Load()
	time.Sleep(60 * time.Millisecond)
	if n := h.provider.opens.Load(); n != opens {
		t.Errorf("passes ran after stop: %d -> %d", opens, n)
	}
}

func TestStartImmediatePassWithLongInterval(t *testing.T) {
	h := newHarness(t, Options{Interval: time.Hour})
	h.addMessage("m1", "Login", "Code 482913")

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, "notification", func() bool { return len(h.notifier.sentMessages()) == 1 })
	if h.tokens.Load() != 1 {
		t.Errorf("notifiers built = %d, want 1", h.tokens.Load())
	}
}

func TestStartDetachesFromCallerContext(t *testing.T) {
	h := newHarness(t, Options{Interval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	if err := h.svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	waitFor(t, "passes after caller cancel", func() bool { return h.provider.opens.Load() >= 3 })
	if !h.svc.Running() {
		t.Error("service should keep running")
	}
}

func TestStartNotifierFailureStillPolls(t *testing.T) {
	h := newHarness(t, Options{Interval: time.Hour})
	h.svc.newNotifier = func(token string) (Notifier, error) {
		return nil, errors.New("bad token")
	}
	h.addMessage("m1", "Login", "Code 482913")

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, "marked message", func() bool { return len(h.mailbox.markedIDs()) == 1 })
	if n := len(h.store.storedCodes()); n != 1 {
		t.Errorf("codes = %d, want 1", n)
	}
	if n := len(h.notifier.sentMessages()); n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}
}

func TestStopDoesNotInterruptPass(t *testing.T) {
	h := newHarness(t, Options{Interval: time.Hour})
	h.mailbox.entered = make(chan struct{}, 1)
	h.mailbox.release = make(chan struct{})
	h.store.settings.TelegramChatID = ""
	h.addMessage("m1", "Login", "Code 482913")

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-h.mailbox.entered

	stopped := make(chan struct{})
	go func() {
		h.svc.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop blocked on the running pass")
	}

	close(h.mailbox.release)
	h.svc.Wait()

	if n := len(h.store.storedCodes()); n != 1 {
		t.Errorf("codes = %d, want 1", n)
	}
	if got := h.mailbox.markedIDs(); len(got) != 1 {
		t.Errorf("marked = %v", got)
	}
}

func TestRestartReplacesSchedule(t *testing.T) {
	h := newHarness(t, Options{Interval: time.Hour})

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.svc.Restart(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}

	if !h.svc.Running() {
		t.Error("service should be running")
	}
	if n := h.tokens.Load(); n != 2 {
		t.Errorf("notifiers built = %d, want 2", n)
	}

	h.svc.Stop()
	if h.svc.Running() {
		t.Error("service should be stopped")
	}
}

func TestTestConnection(t *testing.T) {
	h := newHarness(t, Options{})

	if err := h.svc.TestConnection(context.Background()); err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if h.tokens.Load() != 1 {
		t.Errorf("notifiers built = %d, want 1", h.tokens.Load())
	}
	if h.mailbox.closed != 1 {
		t.Errorf("mailbox closed = %d, want 1", h.mailbox.closed)
	}
}

func TestTestConnectionSkipsBotWithoutToken(t *testing.T) {
	h := newHarness(t, Options{})
	h.store.settings.TelegramToken = ""

	if err := h.svc.TestConnection(context.Background()); err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if h.tokens.Load() != 0 {
		t.Errorf("notifiers built = %d, want 0", h.tokens.Load())
	}
}

func TestTestConnectionFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		cause string
	}{
		{"settings", func(h *harness) { h.store.settingsErr = database.ErrNotFound }, "not found"},
		{"open", func(h *harness) { h.provider.openErr = errors.New("invalid_grant") }, "invalid_grant"},
		{"profile", func(h *harness) { h.mailbox.profileErr = errors.New("auth expired") }, "auth expired"},
		{"identity", func(h *harness) { h.notifier.identityErr = errors.New("Unauthorized") }, "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			tt.setup(h)

			err := h.svc.TestConnection(context.Background())
			var connErr *ConnectionError
			if !errors.As(err, &connErr) {
				t.Fatalf("err = %v, want *ConnectionError", err)
			}
			if !strings.HasPrefix(err.Error(), "connection failed: ") {
				t.Errorf("message = %q", err.Error())
			}
			if !strings.Contains(err.Error(), tt.cause) {
				t.Errorf("message %q should contain %q", err.Error(), tt.cause)
			}
		})
	}
}

func TestConnectionErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := error(&ConnectionError{Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Error() != "connection failed: boom" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestStopMidPassSilencesRemainingMessages(t *testing.T) {
	h := newHarness(t, Options{Interval: time.Hour})
	h.addMessage("m1", "Login", "Code 111111")
	h.addMessage("m2", "Login", "Code 222222")
	h.mailbox.beforeGet = func(id string) {
		if id == "m2" {
			h.svc.Stop()
		}
	}

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "both messages marked", func() bool { return len(h.mailbox.markedIDs()) == 2 })
	h.svc.Wait()

	if h.svc.Running() {
		t.Error("service should be stopped")
	}
	if n := len(h.store.storedCodes()); n != 2 {
		t.Errorf("codes = %d, want 2", n)
	}
	sent := h.notifier.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].text, "111111") {
		t.Errorf("sent = %+v, want only the message before Stop", sent)
	}
}
