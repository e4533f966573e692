// Package notify provides notification sinks: a structured-log sink, an
// in-memory hub that keeps recent notifications and fans them out to live
// subscribers, and a sink combining several others.
package notify

import (
	"log/slog"
	"time"

	"github.com/ruteri/erc3643-wallet-session/interfaces"
)

// Notification is one user-facing event as delivered to rendering layers.
type Notification struct {
	ID          string                      `json:"id"`
	Kind        interfaces.NotificationKind `json:"kind"`
	Title       string                      `json:"title"`
	Message     string                      `json:"message"`
	Destructive bool                        `json:"destructive"`
	Time        time.Time                   `json:"time"`
}

// Title returns the headline shown for a notification kind.
func Title(kind interfaces.NotificationKind) string {
	switch kind {
	case interfaces.KindConnected:
		return "Wallet Connected"
	case interfaces.KindDisconnected:
		return "Wallet Disconnected"
	default:
		return "Operation Failed"
	}
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(kind interfaces.NotificationKind, message string) {
	if kind.Destructive() {
		s.log.Warn(Title(kind), "kind", kind, "message", message)
		return
	}
	s.log.Info(Title(kind), "kind", kind, "message", message)
}

// Multi forwards each notification to every sink in order.
type Multi []interfaces.NotificationSink

func (m Multi) Notify(kind interfaces.NotificationKind, message string) {
	for _, sink := range m {
		sink.Notify(kind, message)
	}
}
