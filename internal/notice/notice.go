package notice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const (
	// KindOnboarding announces that a fresh wallet was provisioned at login.
	KindOnboarding = "onboarding"
	// KindStaleState warns that a refresh failed and the displayed balances
	// are the last known good snapshot.
	KindStaleState = "stale_state"
	// KindInfo carries informational messages, e.g. that a verified top-up
	// will be credited shortly.
	KindInfo = "info"
)

// Notice describes a user-facing message.
type Notice struct {
	Kind string
	Body string
}

// Notifier delivers notices to the user without blocking the operation that
// raised them.
type Notifier interface {
	Send(ctx context.Context, n Notice) error
}

// Writer prints notices to a terminal stream.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter constructs a terminal notifier.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Send writes the notice body prefixed by a marker matching its kind.
func (w *Writer) Send(_ context.Context, n Notice) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	prefix := "--"
	if n.Kind == KindStaleState {
		prefix = "!!"
	}
	_, err := fmt.Fprintf(w.out, "%s %s\n", prefix, n.Body)
	return err
}

// LoggerNotifier routes notices to the structured logger. Useful for tests
// and for contexts without a terminal.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the notice to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Notice) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notice", "kind", message.Kind, "body", message.Body)
	return nil
}
