// Package notification delivers signal and health alerts to external
// channels. The original deployment mailed alerts; here delivery is a
// generic webhook so any relay (mail bridge, Discord, Slack) can
// consume them.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`

	// Set on signal alerts, zero otherwise.
	Symbol    string  `json:"symbol,omitempty"`
	Direction string  `json:"direction,omitempty"`
	Strength  float64 `json:"strength,omitempty"`
	WindowID  int64   `json:"window_id,omitempty"`
}

// SignalAlert builds the alert sent when the engine emits a trade
// signal.
func SignalAlert(sig *model.Signal, price float64) Alert {
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s signal: %s", sig.Symbol, sig.Direction),
		Message: fmt.Sprintf("%s %s @ %.2f, strength %.2f, window %d",
			sig.Symbol, sig.Direction, price, sig.Strength, sig.WindowID),
		Symbol:    sig.Symbol,
		Direction: sig.Direction.String(),
		Strength:  sig.Strength,
		WindowID:  sig.WindowID,
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log. Used when no
// webhook is configured and in demo mode.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("alert",
		"level", string(alert.Level),
		"title", alert.Title,
		"message", alert.Message,
	)
	return nil
}
