// Package notify posts user-facing notifications. Delivery is best effort;
// failures are logged and never propagate.
package notify

import "log/slog"

// Notifier posts a notification to the user.
type Notifier struct {
	appName string
}

// New creates a Notifier labeled with appName.
func New(appName string) *Notifier {
	return &Notifier{appName: appName}
}

// Notify shows a notification with the given title and message.
func (n *Notifier) Notify(title, message string) {
	if err := post(n.appName, title, message); err != nil {
		slog.Warn("notification failed", "title", title, "error", err)
	}
}
